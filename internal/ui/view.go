package ui

import (
	"github.com/mschirtzinger/logseq-tasks/internal/logseq"
	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

// TaskView is the flattened form of a record used for JSON output and the
// dashboard feed.
type TaskView struct {
	UUID      string   `json:"uuid"`
	Title     string   `json:"title"`
	Status    string   `json:"status,omitempty"`
	Priority  string   `json:"priority,omitempty"`
	Page      string   `json:"page,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Scheduled string   `json:"scheduled,omitempty"`
	Deadline  string   `json:"deadline,omitempty"`
	URL       string   `json:"url,omitempty"`
	Links     []string `json:"links,omitempty"`
}

// NewTaskView flattens rec. status overrides the record's own status
// reference when non-empty. graph is used for the deep link; an empty
// graph leaves URL and Links unset.
func NewTaskView(graph string, rec types.Record, status string) TaskView {
	v := TaskView{
		UUID:     rec.UUID,
		Title:    rec.DisplayTitle(),
		Status:   status,
		Priority: rec.Priority.Display(),
		Page:     rec.Page.Display(),
		Tags:     rec.TagNames(),
	}
	if v.Status == "" {
		v.Status = rec.Status.Display()
	}
	if rec.Scheduled != nil {
		v.Scheduled = types.FormatDay(*rec.Scheduled)
	}
	if rec.Deadline != nil {
		v.Deadline = types.FormatDay(*rec.Deadline)
	}
	if graph != "" {
		v.URL = types.BlockURL(graph, rec.UUID)
		for _, page := range types.PageLinks(v.Title) {
			v.Links = append(v.Links, types.PageURL(graph, page))
		}
	}
	return v
}

// TaskViews flattens every record of res.
func TaskViews(graph string, res *logseq.QueryResult) []TaskView {
	if res == nil {
		return []TaskView{}
	}
	return StatusTaskViews(graph, res.WithStatus())
}

// StatusTaskViews flattens records already paired with their status names.
func StatusTaskViews(graph string, paired []logseq.StatusRecord) []TaskView {
	out := make([]TaskView, len(paired))
	for i, p := range paired {
		out[i] = NewTaskView(graph, p.Record, p.StatusName)
	}
	return out
}
