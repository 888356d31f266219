package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrUnknownDay is returned when text cannot be read as a calendar day.
var ErrUnknownDay = errors.New("unrecognised day")

var dayParser = newDayParser()

func newDayParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseDay reads text as a calendar day relative to now and returns it as
// YYYYMMDD. Accepted forms are 2006-01-02, 20060102, and English phrases
// such as "today", "tomorrow" or "next friday".
func ParseDay(text string, now time.Time) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: empty", ErrUnknownDay)
	}

	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return FormatDate(t), nil
		}
	}

	switch strings.ToLower(text) {
	case "today":
		return FormatDate(now), nil
	case "tomorrow":
		return FormatDate(now.AddDate(0, 0, 1)), nil
	case "yesterday":
		return FormatDate(now.AddDate(0, 0, -1)), nil
	}

	r, err := dayParser.Parse(text, now)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrUnknownDay, text, err)
	}
	if r == nil {
		return 0, fmt.Errorf("%w %q", ErrUnknownDay, text)
	}
	return FormatDate(r.Time.In(now.Location())), nil
}
