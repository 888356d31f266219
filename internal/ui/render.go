package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/mschirtzinger/logseq-tasks/internal/logseq"
	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

// Printer writes human-readable output.
type Printer struct {
	w      io.Writer
	styles Styles
	width  int

	// ShowLinks appends the logseq:// deep links below each task: the block
	// itself, then every [[page]] its title mentions.
	ShowLinks bool
}

// NewPrinter creates a Printer for w.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{
		w:      w,
		styles: NewStyles(w, color),
		width:  Width(w),
	}
}

// Tasks prints one line per record.
func (p *Printer) Tasks(graph string, res *logseq.QueryResult) {
	views := TaskViews(graph, res)
	if len(views) == 0 {
		fmt.Fprintln(p.w, p.styles.Dim.Render("No tasks found"))
		return
	}
	for _, v := range views {
		fmt.Fprintln(p.w, p.taskLine(v))
		if p.ShowLinks && v.URL != "" {
			fmt.Fprintln(p.w, "    "+p.styles.Dim.Render(v.URL))
			for _, link := range v.Links {
				fmt.Fprintln(p.w, "    "+p.styles.Dim.Render(link))
			}
		}
	}
	if res.Truncated {
		fmt.Fprintln(p.w, p.styles.Dim.Render(
			fmt.Sprintf("showing %d of %d tasks", len(res.Records), res.Total)))
	}
}

func (p *Printer) taskLine(v TaskView) string {
	var b strings.Builder
	if v.Status != "" {
		b.WriteString(p.styles.status(v.Status).Render(fmt.Sprintf("%-7s", v.Status)))
		b.WriteByte(' ')
	}
	if v.Priority != "" {
		b.WriteString(p.styles.priority(v.Priority).Render("[" + v.Priority + "]"))
		b.WriteByte(' ')
	}

	var meta []string
	if v.Page != "" {
		meta = append(meta, v.Page)
	}
	if v.Scheduled != "" {
		meta = append(meta, "scheduled "+v.Scheduled)
	}
	if v.Deadline != "" {
		meta = append(meta, "deadline "+v.Deadline)
	}
	suffix := ""
	if len(meta) > 0 {
		suffix = "  " + strings.Join(meta, " · ")
	}

	title := v.Title
	room := p.width - lipgloss.Width(b.String()) - lipgloss.Width(suffix)
	if room > 10 {
		title = truncate(title, room)
	}
	b.WriteString(p.styles.Bold.Render(title))
	if suffix != "" {
		b.WriteString(p.styles.Dim.Render(suffix))
	}
	return b.String()
}

// Presets prints the preset list, marking the last used one.
func (p *Printer) Presets(list []types.QueryPreset, lastUsed uuid.UUID, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(p.w, p.styles.Dim.Render("No presets"))
		return
	}
	nameWidth := 0
	for _, q := range list {
		nameWidth = max(nameWidth, lipgloss.Width(q.Name))
	}
	for _, q := range list {
		marker := "  "
		if q.ID == lastUsed {
			marker = p.styles.Success.Render("* ")
		}
		kind := "custom"
		if q.IsDefault {
			kind = "built-in"
		}
		modified := humanize.RelTime(q.LastModified, now, "ago", "from now")
		name := q.Name + strings.Repeat(" ", nameWidth-lipgloss.Width(q.Name))
		fmt.Fprintf(p.w, "%s%s  %s\n", marker, p.styles.Bold.Render(name),
			p.styles.Dim.Render(fmt.Sprintf("%-8s  %s  %s", kind, shortID(q.ID), modified)))
	}
}

// Preset prints one preset including its query text.
func (p *Printer) Preset(q types.QueryPreset, now time.Time) {
	fmt.Fprintln(p.w, p.styles.Title.Render(q.Name))
	fmt.Fprintf(p.w, "%s %s\n", p.styles.Dim.Render("id:      "), q.ID)
	if q.IsDefault {
		fmt.Fprintf(p.w, "%s %s\n", p.styles.Dim.Render("kind:    "), "built-in (read-only)")
	} else {
		fmt.Fprintf(p.w, "%s %s\n", p.styles.Dim.Render("kind:    "), "custom")
		fmt.Fprintf(p.w, "%s %s\n", p.styles.Dim.Render("created: "), humanize.RelTime(q.CreatedAt, now, "ago", "from now"))
		fmt.Fprintf(p.w, "%s %s\n", p.styles.Dim.Render("modified:"), humanize.RelTime(q.LastModified, now, "ago", "from now"))
	}
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, q.Text)
}

// Graphs prints graph names, marking the selected one.
func (p *Printer) Graphs(graphs []string, selected string) {
	if len(graphs) == 0 {
		fmt.Fprintln(p.w, p.styles.Dim.Render("No DB graphs found"))
		return
	}
	for _, g := range graphs {
		if g == selected {
			fmt.Fprintln(p.w, p.styles.Success.Render("* ")+p.styles.Bold.Render(g))
		} else {
			fmt.Fprintln(p.w, "  "+g)
		}
	}
}

// StatusCount is the number of tasks in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Counts prints one line per status, counts lined up in one column.
func (p *Printer) Counts(counts []StatusCount) {
	width := 0
	for _, c := range counts {
		width = max(width, len(c.Status))
	}
	for _, c := range counts {
		pad := strings.Repeat(" ", width-len(c.Status))
		fmt.Fprintf(p.w, "%s%s  %s\n", p.styles.status(c.Status).Render(c.Status), pad, humanize.Comma(int64(c.Count)))
	}
}

// Check prints one status line of a diagnostic.
func (p *Printer) Check(ok bool, label, detail string) {
	mark := p.styles.Success.Render("✓")
	if !ok {
		mark = p.styles.Error.Render("✗")
	}
	line := mark + " " + label
	if detail != "" {
		line += "  " + p.styles.Dim.Render(detail)
	}
	fmt.Fprintln(p.w, line)
}

// Error prints err verbatim in the error style.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.w, p.styles.Error.Render("Error: "+err.Error()))
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > n-1 {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
