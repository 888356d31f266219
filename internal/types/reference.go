package types

import (
	"net/url"
	"regexp"
)

// Reference points at another entity: a status, priority, tag or page.
// Any field may be absent.
type Reference struct {
	ID    *int64  `json:"db/id,omitempty"`
	Title *string `json:"block/title,omitempty"`
	Name  *string `json:"block/name,omitempty"`
}

// Display returns the short name, falling back to the title. A reference
// with neither renders as "" (no value).
func (r *Reference) Display() string {
	if r == nil {
		return ""
	}
	if r.Name != nil && *r.Name != "" {
		return *r.Name
	}
	if r.Title != nil {
		return *r.Title
	}
	return ""
}

// IsEmpty reports whether the reference has nothing to display.
func (r *Reference) IsEmpty() bool {
	return r.Display() == ""
}

// NamedReference builds a reference whose title and name are both s.
func NamedReference(s string) *Reference {
	title, name := s, s
	return &Reference{Title: &title, Name: &name}
}

// UntitledTask is shown for records with neither title nor content.
const UntitledTask = "Untitled Task"

// DisplayTitle returns the title, then the content, then UntitledTask.
func (r Record) DisplayTitle() string {
	if r.Title != nil && *r.Title != "" {
		return *r.Title
	}
	if r.Content != nil && *r.Content != "" {
		return *r.Content
	}
	return UntitledTask
}

// TagNames returns the display names of the record's tags, skipping tags
// that have none.
func (r Record) TagNames() []string {
	var names []string
	for i := range r.Tags {
		if n := r.Tags[i].Display(); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// BlockURL returns the logseq:// deep link that opens a block.
func BlockURL(graph, uuid string) string {
	return "logseq://graph/" + escapePath(graph) + "?block-id=" + uuid
}

// PageURL returns the logseq:// deep link that opens a page by name.
func PageURL(graph, page string) string {
	return "logseq://graph/" + escapePath(graph) + "?page=" + escapePath(page)
}

var (
	pageLinkPattern = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	uuidPattern     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// PageLinks returns the page names referenced as [[name]] in title, in
// order of first appearance. Block references ([[uuid]]) are skipped.
func PageLinks(title string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range pageLinkPattern.FindAllStringSubmatch(title, -1) {
		name := m[1]
		if uuidPattern.MatchString(name) || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func escapePath(s string) string {
	return url.PathEscape(s)
}
