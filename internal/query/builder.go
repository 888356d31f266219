// Package query builds Datalog query strings for the logseq CLI.
//
// Every function here is pure: it returns query text and never talks to the
// engine. Malformed user text passed through Raw is left for the engine to
// reject.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TaskTag is the tag title that marks a block as a task in DB graphs.
const TaskTag = "Task"

// Statuses excluded from Active.
const (
	StatusDone     = "Done"
	StatusCanceled = "Canceled"
)

// refPull projects a referenced entity down to what Reference decodes.
const refPull = "[:db/id :block/title :block/name]"

// PullPattern is the projection shared by every task query.
var PullPattern = "[:block/uuid :block/title :block/content :block/properties" +
	" {:block/tags " + refPull + "}" +
	" {:block/page " + refPull + "}" +
	" {:logseq.property/status " + refPull + "}" +
	" {:logseq.property/priority " + refPull + "}" +
	" :logseq.property/scheduled :logseq.property/deadline]"

// Clauses reused across queries.
var (
	taggedTask = []string{
		"[?b :block/tags ?t]",
		"[?t :block/title " + Quote(TaskTag) + "]",
	}
	statusJoin = []string{
		"[?b :logseq.property/status ?s]",
		"[?s :block/title ?status-name]",
	}
	hasPriority = "[?b :logseq.property/priority ?p]"
)

// datalog assembles a single :find query.
type datalog struct {
	find  []string
	where []string
	limit int
}

func (q datalog) String() string {
	var b strings.Builder
	b.WriteString("[:find ")
	b.WriteString(strings.Join(q.find, " "))
	b.WriteString("\n :where")
	for _, clause := range q.where {
		b.WriteString("\n   ")
		b.WriteString(clause)
	}
	if q.limit > 0 {
		b.WriteString("\n :limit ")
		b.WriteString(strconv.Itoa(q.limit))
	}
	b.WriteString("]")
	return b.String()
}

func pullTask() string {
	return "(pull ?b " + PullPattern + ")"
}

// withStatus returns a query whose rows are [record, status-name] pairs.
func withStatus(extra ...string) datalog {
	where := append(append([]string{}, taggedTask...), statusJoin...)
	return datalog{
		find:  []string{pullTask(), "?status-name"},
		where: append(where, extra...),
	}
}

// Status returns tasks whose status title equals name.
func Status(name string) string {
	return withStatus(fmt.Sprintf("[(= ?status-name %s)]", Quote(name))).String()
}

// Doing returns tasks in the "Doing" status.
func Doing() string { return Status("Doing") }

// Todo returns tasks in the "Todo" status. DB graphs title it "Todo", not
// the file-graph "TODO" marker.
func Todo() string { return Status("Todo") }

// TodoWithPriority returns "Todo" tasks that have any priority set.
func TodoWithPriority() string {
	return withStatus(
		fmt.Sprintf("[(= ?status-name %s)]", Quote("Todo")),
		hasPriority,
	).String()
}

// Priority returns tasks whose priority title is one of names.
// With no names it matches any task that has a priority.
func Priority(names ...string) string {
	where := append([]string{}, taggedTask...)
	where = append(where, hasPriority)
	if len(names) > 0 {
		where = append(where,
			"[?p :block/title ?priority-name]",
			fmt.Sprintf("[(contains? %s ?priority-name)]", set(names)),
		)
	}
	return datalog{find: []string{pullTask()}, where: where}.String()
}

// HighPriority returns tasks with priority "A".
func HighPriority() string { return Priority("A") }

// Today returns tasks scheduled or due on the calendar day of now, in now's
// location.
func Today(now time.Time) string {
	return OnDay(FormatDate(now))
}

// OnDay returns tasks scheduled or due on day (YYYYMMDD).
func OnDay(day int) string {
	d := strconv.Itoa(day)
	return withStatus(
		"(or [?b :logseq.property/scheduled "+d+"]\n       [?b :logseq.property/deadline "+d+"])",
	).String()
}

// Active returns every task that is neither done nor canceled. A positive
// limit is passed to the engine; callers that want to detect truncation ask
// for one more than they display.
func Active(limit int) string {
	q := withStatus(
		fmt.Sprintf("[(not= ?status-name %s)]", Quote(StatusDone)),
		fmt.Sprintf("[(not= ?status-name %s)]", Quote(StatusCanceled)),
	)
	q.limit = limit
	return q.String()
}

// ClassInheritance returns prioritised tasks in the given status that are
// either tagged directly with className or tagged with a class extending it.
func ClassInheritance(status, className string) string {
	class := Quote(className)
	return datalog{
		find: []string{pullTask()},
		where: []string{
			"(or-join [?b]\n     (and [?b :block/tags ?t]\n          [?t :block/title " + class + "])" +
				"\n     (and [?b :block/tags ?child]\n          [?child :logseq.property.class/extends ?parent]\n          [?parent :block/title " + class + "]))",
			"[?b :logseq.property/status ?s]",
			fmt.Sprintf("[?s :block/title %s]", Quote(status)),
			hasPriority,
		},
	}.String()
}

// FindByUUID looks up a single block by identifier, projecting only its
// identifier and title. Used to resolve [[uuid]] markers.
func FindByUUID(uuid string) string {
	return datalog{
		find:  []string{"(pull ?b [:block/uuid :block/title])"},
		where: []string{fmt.Sprintf("[?b :block/uuid #uuid %s]", Quote(uuid))},
	}.String()
}

// SimpleTasks pulls only uuid and content for every task. Used for
// diagnosing decode problems.
func SimpleTasks() string {
	return datalog{
		find:  []string{"(pull ?b [:block/uuid :block/content])"},
		where: append([]string{}, taggedTask...),
	}.String()
}

// AnyBlocks matches every block in the graph.
func AnyBlocks() string {
	return datalog{
		find:  []string{"(pull ?b [:block/uuid :block/content])"},
		where: []string{"[?b :block/uuid]"},
	}.String()
}

// CountByStatus counts tasks in the given status. The engine answers with a
// bare number rather than task objects, so the result cannot be decoded by
// Client.Query; run it through Client.Count instead.
func CountByStatus(status string) string {
	where := append([]string{}, taggedTask...)
	where = append(where,
		"[?b :logseq.property/status ?s]",
		fmt.Sprintf("[?s :block/title %s]", Quote(status)),
	)
	return datalog{find: []string{"(count ?b)"}, where: where}.String()
}

// Raw passes user-authored query text through unchanged apart from
// surrounding whitespace.
func Raw(text string) string {
	return strings.TrimSpace(text)
}

// FormatDate encodes the calendar day of t (in t's location) as YYYYMMDD.
func FormatDate(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Quote renders s as an EDN string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// set renders names as a sorted, deduplicated EDN set literal.
func set(names []string) string {
	uniq := make(map[string]struct{}, len(names))
	for _, n := range names {
		uniq[n] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for n := range uniq {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	quoted := make([]string, len(sorted))
	for i, n := range sorted {
		quoted[i] = Quote(n)
	}
	return "#{" + strings.Join(quoted, " ") + "}"
}
