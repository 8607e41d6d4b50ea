package blueprint

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ddm-research/donation-monitor/app/table"
)

// ActivityColumns is the canonical schema of activity exports.
var ActivityColumns = []string{
	"timestamp", "link", "activity_type", "date", "searchterm",
	"sharedcontent", "method", "who_can_view", "allow_comments",
	"allow_stitches", "likes", "url", "user_name", "participant_id",
}

// Activity is one decoded data row of a known category.
type Activity interface {
	ActivityType() string
	Row() table.Row
}

// Text is a scalar cell that may arrive as a string, number or boolean.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{', '[':
		return fmt.Errorf("expected scalar, got %s", data[:1])
	default:
		var v any
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return err
		}
		*t = Text(table.String(v))
	}
	return nil
}

func put(row table.Row, column string, value *Text) {
	if value != nil {
		row[column] = string(*value)
	}
}

type WatchedVideo struct {
	Date *Text `json:"Date" validate:"required"`
	Link *Text `json:"Link"`
}

func (WatchedVideo) ActivityType() string { return "watch_video" }

func (a WatchedVideo) Row() table.Row {
	row := table.Row{}
	put(row, "timestamp", a.Date)
	put(row, "link", a.Link)
	return row
}

// Like rows come with a lower-case date column in some exports.
type Like struct {
	Timestamp *Text `json:"Date" validate:"required_without=Date"`
	Date      *Text `json:"date" validate:"required_without=Timestamp"`
	Link      *Text `json:"link"`
}

func (Like) ActivityType() string { return "like" }

func (a Like) Row() table.Row {
	row := table.Row{}
	put(row, "timestamp", a.Timestamp)
	put(row, "date", a.Date)
	put(row, "link", a.Link)
	return row
}

type Search struct {
	Date       *Text `json:"Date" validate:"required"`
	SearchTerm *Text `json:"SearchTerm"`
}

func (Search) ActivityType() string { return "search" }

func (a Search) Row() table.Row {
	row := table.Row{}
	put(row, "timestamp", a.Date)
	put(row, "searchterm", a.SearchTerm)
	return row
}

type Share struct {
	Date          *Text `json:"Date" validate:"required"`
	Link          *Text `json:"Link"`
	SharedContent *Text `json:"SharedContent"`
	Method        *Text `json:"Method"`
}

func (Share) ActivityType() string { return "share" }

func (a Share) Row() table.Row {
	row := table.Row{}
	put(row, "timestamp", a.Date)
	put(row, "link", a.Link)
	put(row, "sharedcontent", a.SharedContent)
	put(row, "method", a.Method)
	return row
}

type Post struct {
	Date          *Text `json:"Date" validate:"required"`
	Link          *Text `json:"Link"`
	WhoCanView    *Text `json:"WhoCanView"`
	AllowComments *Text `json:"AllowComments"`
	AllowStitches *Text `json:"AllowStitches"`
	Likes         *Text `json:"Likes"`
}

func (Post) ActivityType() string { return "post" }

func (a Post) Row() table.Row {
	row := table.Row{}
	put(row, "timestamp", a.Date)
	put(row, "link", a.Link)
	put(row, "who_can_view", a.WhoCanView)
	put(row, "allow_comments", a.AllowComments)
	put(row, "allow_stitches", a.AllowStitches)
	put(row, "likes", a.Likes)
	return row
}

type Comment struct {
	Date *Text `json:"Date" validate:"required"`
	URL  *Text `json:"Url"`
}

func (Comment) ActivityType() string { return "comment" }

func (a Comment) Row() table.Row {
	row := table.Row{}
	put(row, "timestamp", a.Date)
	put(row, "url", a.URL)
	return row
}

// AccountRelation covers the follows, followed-by and blocked lists; Kind
// holds the activity type.
type AccountRelation struct {
	Kind     string `json:"-"`
	Date     *Text  `json:"Date" validate:"required"`
	UserName *Text  `json:"UserName"`
}

func (a AccountRelation) ActivityType() string { return a.Kind }

func (a AccountRelation) Row() table.Row {
	row := table.Row{}
	put(row, "timestamp", a.Date)
	put(row, "user_name", a.UserName)
	return row
}

type category struct {
	id           string
	activityType string
	decode       func(json.RawMessage) (Activity, error)
}

func decodeAs[T Activity](raw json.RawMessage) (Activity, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeRelation(kind string) func(json.RawMessage) (Activity, error) {
	return func(raw json.RawMessage) (Activity, error) {
		v := AccountRelation{Kind: kind}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// categories lists the known blueprints in export order.
var categories = []category{
	{"1", "watch_video", decodeAs[WatchedVideo]},
	{"2", "like", decodeAs[Like]},
	{"3", "search", decodeAs[Search]},
	{"4", "share", decodeAs[Share]},
	{"5", "post", decodeAs[Post]},
	{"6", "comment", decodeAs[Comment]},
	{"7", "follows_user", decodeRelation("follows_user")},
	{"8", "followed_user", decodeRelation("followed_user")},
	{"9", "blocked_user", decodeRelation("blocked_user")},
}

// ActivityTypeOf returns the activity type of a known blueprint ID.
func ActivityTypeOf(blueprintID string) (string, bool) {
	for _, c := range categories {
		if c.id == blueprintID {
			return c.activityType, true
		}
	}
	return "", false
}
