package table

import "sort"

const (
	leftSuffix  = "_x"
	rightSuffix = "_y"
)

// OuterJoin performs a full outer join of left and right on key. Every key
// present on either side yields at least one row; duplicate keys produce
// one row per pair. Non-key columns present on both sides are suffixed
// with _x (left) and _y (right). Rows are ordered by key; rows with a null
// key are kept unmatched at the end.
func OuterJoin(left, right *Table, key string) *Table {
	shared := make(map[string]bool)
	for _, c := range right.columns {
		if c != key && left.known[c] {
			shared[c] = true
		}
	}

	leftName := func(c string) string {
		if shared[c] {
			return c + leftSuffix
		}
		return c
	}
	rightName := func(c string) string {
		if shared[c] {
			return c + rightSuffix
		}
		return c
	}

	out := New(key)
	for _, c := range left.columns {
		if c != key {
			out.AddColumn(leftName(c))
		}
	}
	for _, c := range right.columns {
		if c != key {
			out.AddColumn(rightName(c))
		}
	}

	rightByKey := make(map[string][]Row)
	var rightKeys []string
	for _, row := range right.rows {
		if IsNull(row[key]) {
			continue
		}
		k := String(row[key])
		if _, seen := rightByKey[k]; !seen {
			rightKeys = append(rightKeys, k)
		}
		rightByKey[k] = append(rightByKey[k], row)
	}

	type keyedRow struct {
		key string
		row Row
	}
	var matched []keyedRow
	var orphans []Row
	leftKeys := make(map[string]bool)

	merge := func(l, r Row) Row {
		merged := make(Row, len(out.columns))
		for c, v := range l {
			if c == key {
				continue
			}
			merged[leftName(c)] = v
		}
		for c, v := range r {
			if c == key {
				continue
			}
			merged[rightName(c)] = v
		}
		if l != nil {
			merged[key] = l[key]
		} else {
			merged[key] = r[key]
		}
		return merged
	}

	for _, l := range left.rows {
		if IsNull(l[key]) {
			orphans = append(orphans, merge(l, nil))
			continue
		}
		k := String(l[key])
		leftKeys[k] = true
		rs := rightByKey[k]
		if len(rs) == 0 {
			matched = append(matched, keyedRow{k, merge(l, nil)})
			continue
		}
		for _, r := range rs {
			matched = append(matched, keyedRow{k, merge(l, r)})
		}
	}
	for _, k := range rightKeys {
		if leftKeys[k] {
			continue
		}
		for _, r := range rightByKey[k] {
			matched = append(matched, keyedRow{k, merge(nil, r)})
		}
	}
	for _, r := range right.rows {
		if IsNull(r[key]) {
			orphans = append(orphans, merge(nil, r))
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].key < matched[j].key
	})

	for _, m := range matched {
		out.rows = append(out.rows, m.row)
	}
	out.rows = append(out.rows, orphans...)

	return out
}
