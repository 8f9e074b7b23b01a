package normalize

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// tenThousand is the CJK unit glyph multiplying the preceding number by 10000.
const tenThousand = "万"

var spaceRe = regexp.MustCompile(`\s+`)

// ParseCount turns a display count like "1.2万" or "3052" into an integer.
// The fractional part left after applying the unit is truncated.
func ParseCount(text string) (int, error) {
	text = strings.TrimSpace(text)

	unit := 1.0
	if strings.Contains(text, tenThousand) {
		unit = 10000
		text = strings.TrimSpace(strings.ReplaceAll(text, tenThousand, ""))
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", text, err)
	}

	return int(v * unit), nil
}

// ParseDuration turns a colon-separated duration like "1:02:03" into seconds.
// Segments are read right-to-left as seconds, minutes, hours and so on,
// base-60 positional. An empty string is zero.
func ParseDuration(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}

	total := 0
	unit := 1
	parts := strings.Split(text, ":")
	for i := len(parts) - 1; i >= 0; i-- {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", text, err)
		}
		total += n * unit
		unit *= 60
	}

	return total, nil
}

// StripMarkup removes tag-shaped substrings and collapses whitespace.
// Search API titles embed keyword-highlight tags inside the text.
func StripMarkup(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(doc.Text(), " "))
}

// DateParser resolves the display encodings of a publish date. It never
// fails: text matching no known pattern degrades to "now". The degrades
// are counted so format drift in the source stays visible.
type DateParser struct {
	logger    *slog.Logger
	fallbacks atomic.Int64
}

func NewDateParser(logger *slog.Logger) *DateParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &DateParser{logger: logger}
}

// Fallbacks reports how many inputs degraded to "now" so far.
func (dp *DateParser) Fallbacks() int64 {
	return dp.fallbacks.Load()
}

// Parse handles, in priority order: "N分钟前" (minutes ago), "N小时前"
// (hours ago), "MM-DD" in the current year, "YYYY-MM-DD", and unix seconds
// (the JSON API encoding). A leading "·" separator glyph is stripped first.
func (dp *DateParser) Parse(text string, now time.Time) time.Time {
	s := strings.TrimSpace(text)
	s = strings.TrimSpace(strings.TrimPrefix(s, "·"))

	switch {
	case strings.Contains(s, "分钟前"):
		minutes, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(s, "分钟前", "")))
		if err != nil {
			return dp.fallback(text, now)
		}
		return now.Add(-time.Duration(minutes) * time.Minute)

	case strings.Contains(s, "小时前"):
		hours, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(s, "小时前", "")))
		if err != nil {
			return dp.fallback(text, now)
		}
		return now.Add(-time.Duration(hours) * time.Hour)

	case strings.Contains(s, "-"):
		parts := strings.Split(s, "-")
		switch len(parts) {
		case 2:
			month, day, err := monthDay(parts[0], parts[1])
			if err != nil {
				return dp.fallback(text, now)
			}
			return time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
		case 3:
			year, err := strconv.Atoi(strings.TrimSpace(parts[0]))
			if err != nil {
				return dp.fallback(text, now)
			}
			month, day, err := monthDay(parts[1], parts[2])
			if err != nil {
				return dp.fallback(text, now)
			}
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
		}
		return dp.fallback(text, now)
	}

	if s != "" && isDigits(s) {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0)
		}
	}

	return dp.fallback(text, now)
}

func (dp *DateParser) fallback(text string, now time.Time) time.Time {
	dp.fallbacks.Add(1)
	dp.logger.Debug("unparseable date degraded to now", "text", text)
	return now
}

func monthDay(monthStr, dayStr string) (month, day int, err error) {
	month, err = strconv.Atoi(strings.TrimSpace(monthStr))
	if err != nil {
		return 0, 0, err
	}
	day, err = strconv.Atoi(strings.TrimSpace(dayStr))
	if err != nil {
		return 0, 0, err
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, fmt.Errorf("date out of range: %02d-%02d", month, day)
	}
	return month, day, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
