// Package types defines the records decoded from Logseq query results and
// the saved query presets that produce them.
//
// A Record is one task block as returned by `logseq query` after the EDN
// output has been converted to JSON. Keys keep their Logseq namespaces
// ("block/uuid", "logseq.property/status", ...), which is what the converter
// emits for EDN keywords.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingUUID is returned when a record object carries no identifier.
var ErrMissingUUID = errors.New("record has no block/uuid")

// Record is a decoded task block.
//
// Only UUID is guaranteed to be set. The remaining fields are pointers or nil
// collections so that "absent" and "empty" stay distinguishable.
type Record struct {
	// UUID is the stable block identifier. Never empty after decoding.
	UUID string `json:"block/uuid"`

	// Title is the block title, the main text for DB-graph tasks.
	Title *string `json:"block/title,omitempty"`

	// Content is the secondary block content.
	Content *string `json:"block/content,omitempty"`

	// Properties is the open-ended property bag.
	Properties map[string]PropertyValue `json:"block/properties,omitempty"`

	Tags []Reference `json:"block/tags,omitempty"`

	// Page is the parent page of the block.
	Page *Reference `json:"block/page,omitempty"`

	Status   *Reference `json:"logseq.property/status,omitempty"`
	Priority *Reference `json:"logseq.property/priority,omitempty"`

	// Scheduled and Deadline are YYYYMMDD integers. Epoch-millisecond
	// timestamps are normalised during decoding.
	Scheduled *int `json:"logseq.property/scheduled,omitempty"`
	Deadline  *int `json:"logseq.property/deadline,omitempty"`
}

// recordWire mirrors Record but keeps the date fields raw so that a value of
// the wrong type degrades to "absent" instead of failing the whole record.
type recordWire struct {
	UUID       *string                  `json:"block/uuid"`
	Title      *string                  `json:"block/title"`
	Content    *string                  `json:"block/content"`
	Properties map[string]PropertyValue `json:"block/properties"`
	Tags       []Reference              `json:"block/tags"`
	Page       *Reference               `json:"block/page"`
	Status     *Reference               `json:"logseq.property/status"`
	Priority   *Reference               `json:"logseq.property/priority"`
	Scheduled  json.RawMessage          `json:"logseq.property/scheduled"`
	Deadline   json.RawMessage          `json:"logseq.property/deadline"`
}

// UnmarshalJSON implements json.Unmarshaler.
//
// The input must be a JSON object with a non-empty "block/uuid" string.
// Every other field is optional, but present fields must have the right
// type, except the two date fields which fall back to nil.
func (r *Record) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return fmt.Errorf("record must be a JSON object, got %s", describeJSON(data))
	}

	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.UUID == nil || *w.UUID == "" {
		return ErrMissingUUID
	}

	*r = Record{
		UUID:       *w.UUID,
		Title:      w.Title,
		Content:    w.Content,
		Properties: w.Properties,
		Tags:       w.Tags,
		Page:       w.Page,
		Status:     w.Status,
		Priority:   w.Priority,
		Scheduled:  decodeDay(w.Scheduled),
		Deadline:   decodeDay(w.Deadline),
	}
	return nil
}

// decodeDay parses an optional date field. Anything that is not a whole
// number yields nil.
func decodeDay(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	v, ok := exactInt(raw)
	if !ok {
		return nil
	}
	day := NormalizeDay(v)
	return &day
}

// WithTitle returns a copy of r whose title is replaced. The receiver is left
// untouched; slices and maps are shared because records are never mutated
// after decoding.
func (r Record) WithTitle(title string) Record {
	r.Title = &title
	return r
}

// TitleText returns the title or "" when absent.
func (r Record) TitleText() string {
	if r.Title == nil {
		return ""
	}
	return *r.Title
}

// ContentText returns the content or "" when absent.
func (r Record) ContentText() string {
	if r.Content == nil {
		return ""
	}
	return *r.Content
}

// SimpleRecord is the reduced shape produced by debug queries that only pull
// uuid and content.
type SimpleRecord struct {
	UUID    string `json:"block/uuid"`
	Content string `json:"block/content"`
}

// UnmarshalJSON implements json.Unmarshaler. Both fields are required.
func (s *SimpleRecord) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return fmt.Errorf("simple record must be a JSON object, got %s", describeJSON(data))
	}

	var w struct {
		UUID    *string `json:"block/uuid"`
		Content *string `json:"block/content"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.UUID == nil || *w.UUID == "" {
		return ErrMissingUUID
	}
	if w.Content == nil {
		return errors.New("simple record has no block/content")
	}
	s.UUID = *w.UUID
	s.Content = *w.Content
	return nil
}

// Promote converts the reduced shape into a full Record with every other
// field absent.
func (s SimpleRecord) Promote() Record {
	content := s.Content
	return Record{UUID: s.UUID, Content: &content}
}

// describeJSON names the JSON kind of data for error messages.
func describeJSON(data []byte) string {
	if len(data) == 0 {
		return "empty input"
	}
	switch data[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
