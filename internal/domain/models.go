package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// TimestampLayout is the layout the reference stores write. Fixed width keeps
// lexical and chronological order identical.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// ID is a server-assigned post identifier. Servers send it as a string or a
// number; both decode to the same textual form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Timestamp keeps the server's textual timestamp as received.
type Timestamp string

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*ts = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*ts = Timestamp(s)
	default:
		// epoch numbers are kept verbatim and parsed on demand
		*ts = Timestamp(data)
	}
	return nil
}

// NewTimestamp formats t the way the reference stores persist it.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Format(TimestampLayout))
}

// Time parses the timestamp leniently. ok is false for empty or unparseable values.
func (ts Timestamp) Time() (t time.Time, ok bool) {
	if ts == "" {
		return time.Time{}, false
	}
	parsed, err := dateparse.ParseAny(string(ts))
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// Post is the single persisted entity.
type Post struct {
	ID         ID        `json:"id" gorm:"type:varchar(64);primary_key"`
	Author     string    `json:"author,omitempty" gorm:"type:varchar(255)"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	ImageURL   string    `json:"imageUrl,omitempty" gorm:"type:text"`
	CreatedAt  Timestamp `json:"createdAt,omitempty" gorm:"type:varchar(40);index"`
	ModifiedAt Timestamp `json:"modifiedAt,omitempty" gorm:"type:varchar(40)"`
}

// DisplayAuthor returns the author or "Anonymous" when none was given.
func (p Post) DisplayAuthor() string {
	if p.Author == "" {
		return "Anonymous"
	}
	return p.Author
}

// Draft is the request body for create and update. It never carries an id.
type Draft struct {
	Author   string `json:"author,omitempty"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// DraftOf copies the editable fields of p.
func DraftOf(p Post) Draft {
	return Draft{Author: p.Author, Content: p.Content, ImageURL: p.ImageURL}
}

// EventType names a change-feed event.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is one message on the change feed.
type Event struct {
	Type EventType `json:"type"`
	ID   ID        `json:"id"`
	Post *Post     `json:"post,omitempty"`
}
