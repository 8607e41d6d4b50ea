package table

import (
	"slices"
	"sort"
)

// Row maps column names to cells. A missing key and a nil cell both mean
// null.
type Row map[string]any

func (r Row) Clone() Row {
	clone := make(Row, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}

// Table is a list of rows with an ordered column set.
type Table struct {
	columns []string
	known   map[string]bool
	rows    []Row
}

func New(columns ...string) *Table {
	t := &Table{known: make(map[string]bool)}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

// FromRecords builds a table from decoded JSON objects. Columns appear in
// the order they are first seen; renames are applied to column names.
func FromRecords(records []*Record, renames map[string]string) *Table {
	t := New()
	for _, rec := range records {
		row := make(Row, rec.Len())
		for _, key := range rec.Keys() {
			col := key
			if renamed, ok := renames[key]; ok {
				col = renamed
			}
			v, _ := rec.Get(key)
			t.AddColumn(col)
			row[col] = v
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

func (t *Table) HasColumn(name string) bool {
	return t.known[name]
}

func (t *Table) AddColumn(name string) {
	if t.known[name] {
		return
	}
	t.known[name] = true
	t.columns = append(t.columns, name)
}

// Append adds a row. Columns the table does not know yet are added in
// sorted order.
func (t *Table) Append(row Row) {
	var unknown []string
	for k := range row {
		if !t.known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		t.AddColumn(k)
	}
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns the rows backing the table; callers must not modify them.
func (t *Table) Rows() []Row {
	return t.rows
}

func (t *Table) Get(i int, column string) any {
	return t.rows[i][column]
}

func (t *Table) Column(name string) []any {
	values := make([]any, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[name]
	}
	return values
}

// Filter returns a new table holding copies of the rows keep accepts.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.columns...)
	for _, row := range t.rows {
		if keep(row) {
			out.rows = append(out.rows, row.Clone())
		}
	}
	return out
}

func (t *Table) Clone() *Table {
	return t.Filter(func(Row) bool { return true })
}

// Concat appends the rows of others, widening the column set as needed.
func Concat(columns []string, tables ...*Table) *Table {
	out := New(columns...)
	for _, other := range tables {
		if other == nil {
			continue
		}
		for _, c := range other.columns {
			out.AddColumn(c)
		}
		for _, row := range other.rows {
			out.rows = append(out.rows, row.Clone())
		}
	}
	return out
}

// Lookup indexes rows by the canonical text of a key column. Rows with a
// null key are left out.
func (t *Table) Lookup(key string) map[string]Row {
	index := make(map[string]Row, len(t.rows))
	for _, row := range t.rows {
		if IsNull(row[key]) {
			continue
		}
		k := String(row[key])
		if _, exists := index[k]; !exists {
			index[k] = row
		}
	}
	return index
}
