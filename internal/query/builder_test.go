package query

import (
	"strings"
	"testing"
	"time"
)

func TestStatusQueries(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"doing", Doing(), []string{`[(= ?status-name "Doing")]`, "?status-name\n"}},
		{"todo", Todo(), []string{`[(= ?status-name "Todo")]`}},
		{"todo with priority", TodoWithPriority(), []string{`[(= ?status-name "Todo")]`, "[?b :logseq.property/priority ?p]"}},
		{"custom", Status("Waiting"), []string{`[(= ?status-name "Waiting")]`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.query, "[:find (pull ?b "+PullPattern+") ?status-name") {
				t.Errorf("query does not project record and status name:\n%s", tt.query)
			}
			if !strings.Contains(tt.query, `[?t :block/title "Task"]`) {
				t.Error("Missing task tag clause")
			}
			for _, w := range tt.want {
				if !strings.Contains(tt.query, w) {
					t.Errorf("query missing %q:\n%s", w, tt.query)
				}
			}
		})
	}
}

func TestPriority(t *testing.T) {
	q := Priority("B", "A", "A")
	if !strings.Contains(q, `[(contains? #{"A" "B"} ?priority-name)]`) {
		t.Errorf("priority set not sorted and deduplicated:\n%s", q)
	}
	if strings.Contains(q, "?status-name") {
		t.Error("priority query should not join status")
	}

	any := Priority()
	if strings.Contains(any, "contains?") {
		t.Error("Priority() with no names should only require a priority")
	}
	if !strings.Contains(any, "[?b :logseq.property/priority ?p]") {
		t.Error("Missing has-priority clause")
	}

	if HighPriority() != Priority("A") {
		t.Error("HighPriority should match priority A")
	}
}

func TestToday(t *testing.T) {
	now := time.Date(2025, time.December, 1, 23, 30, 0, 0, time.UTC)
	q := Today(now)
	for _, w := range []string{
		"[?b :logseq.property/scheduled 20251201]",
		"[?b :logseq.property/deadline 20251201]",
		"(or ",
	} {
		if !strings.Contains(q, w) {
			t.Errorf("today query missing %q:\n%s", w, q)
		}
	}
}

func TestActive(t *testing.T) {
	q := Active(51)
	if !strings.Contains(q, `[(not= ?status-name "Done")]`) || !strings.Contains(q, `[(not= ?status-name "Canceled")]`) {
		t.Errorf("active query must exclude terminal statuses:\n%s", q)
	}
	if !strings.HasSuffix(q, ":limit 51]") {
		t.Errorf("active query missing limit:\n%s", q)
	}
	if strings.Contains(Active(0), ":limit") {
		t.Error("Active(0) should not set a limit")
	}
}

func TestClassInheritance(t *testing.T) {
	q := ClassInheritance("Todo", "Task")
	for _, w := range []string{
		"(or-join [?b]",
		"[?child :logseq.property.class/extends ?parent]",
		`[?parent :block/title "Task"]`,
		`[?s :block/title "Todo"]`,
	} {
		if !strings.Contains(q, w) {
			t.Errorf("class query missing %q:\n%s", w, q)
		}
	}
}

func TestFindByUUID(t *testing.T) {
	q := FindByUUID("68301217-1a99-4d9b-a2f8-e8756851ec28")
	want := `[:find (pull ?b [:block/uuid :block/title])
 :where
   [?b :block/uuid #uuid "68301217-1a99-4d9b-a2f8-e8756851ec28"]]`
	if q != want {
		t.Errorf("FindByUUID =\n%s\nwant\n%s", q, want)
	}
}

func TestDebugQueries(t *testing.T) {
	if !strings.Contains(SimpleTasks(), "(pull ?b [:block/uuid :block/content])") {
		t.Error("SimpleTasks should pull only uuid and content")
	}
	if !strings.Contains(AnyBlocks(), "[?b :block/uuid]") {
		t.Error("AnyBlocks should match every block")
	}
	if !strings.HasPrefix(CountByStatus("Todo"), "[:find (count ?b)") {
		t.Error("CountByStatus should count")
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Todo", `"Todo"`},
		{`say "hi"`, `"say \"hi\""`},
		{`back\slash`, `"back\\slash"`},
		{"two\nlines", `"two\nlines"`},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRaw(t *testing.T) {
	if got := Raw("  [:find ?b :where [?b :block/uuid]]\n"); got != "[:find ?b :where [?b :block/uuid]]" {
		t.Errorf("Raw = %q", got)
	}
}

func TestFormatDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 2025-01-31T20:00Z is already February 1st in UTC+10.
	instant := time.Date(2025, time.January, 31, 20, 0, 0, 0, time.UTC)
	if got := FormatDate(instant); got != 20250131 {
		t.Errorf("FormatDate(UTC) = %d, want 20250131", got)
	}
	if got := FormatDate(instant.In(loc)); got != 20250201 {
		t.Errorf("FormatDate(UTC+10) = %d, want 20250201", got)
	}
}
