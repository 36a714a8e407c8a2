// Package chinesetime resolves Chinese relative and absolute date/time
// phrases embedded in chat messages into concrete timestamps.
package chinesetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date patterns, tried in order. The year is always the current year.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`),
	regexp.MustCompile(`(\d{1,2})月(\d{1,2})号`),
	regexp.MustCompile(`(\d{1,2})/(\d{1,2})`),
	regexp.MustCompile(`(\d{1,2})-(\d{1,2})`),
	regexp.MustCompile(`(\d{1,2})\.(\d{1,2})`),
}

// relDateOffsets maps relative date keywords to day offsets, checked in
// this fixed order before any absolute pattern.
var relDateKeywords = []struct {
	keyword string
	offset  int
}{
	{"今天", 0},
	{"明天", 1},
	{"后天", 2},
}

// Time-of-day patterns, tried in order. Qualified hours go first so that
// 下午/晚上 can add 12 before the bare 点 pattern swallows the digits.
var timePatterns = []struct {
	re        *regexp.Regexp
	addNoon   bool
	hourIndex int
}{
	{regexp.MustCompile(`早上(\d{1,2})点(\d{1,2})?分?`), false, 1},
	{regexp.MustCompile(`上午(\d{1,2})点(\d{1,2})?分?`), false, 1},
	{regexp.MustCompile(`下午(\d{1,2})点(\d{1,2})?分?`), true, 1},
	{regexp.MustCompile(`晚上(\d{1,2})点(\d{1,2})?分?`), true, 1},
	{regexp.MustCompile(`(\d{1,2})点(\d{1,2})?分?`), false, 1},
	{regexp.MustCompile(`(\d{1,2})[:：](\d{1,2})`), false, 1},
}

// Parser resolves date/time phrases against an injectable clock.
type Parser struct {
	location *time.Location
	now      func() time.Time
}

// NewParser creates a parser for the given timezone.
func NewParser(location *time.Location) *Parser {
	if location == nil {
		location = time.Local
	}
	return &Parser{
		location: location,
		now:      time.Now,
	}
}

// NewParserWithClock creates a parser with a fixed clock, for tests.
func NewParserWithClock(location *time.Location, now func() time.Time) *Parser {
	p := NewParser(location)
	p.now = now
	return p
}

// Now returns the parser's current time in its timezone.
func (p *Parser) Now() time.Time {
	return p.now().In(p.location)
}

// Location returns the parser's timezone.
func (p *Parser) Location() *time.Location {
	return p.location
}

// ParseDate extracts a date phrase from the message. Relative keywords win
// over absolute patterns; the first matching pattern wins. ok is false when
// the message carries no recognizable date.
func (p *Parser) ParseDate(message string) (time.Time, bool) {
	now := p.Now()

	for _, rel := range relDateKeywords {
		if strings.Contains(message, rel.keyword) {
			return now.AddDate(0, 0, rel.offset), true
		}
	}

	for _, pattern := range datePatterns {
		matches := pattern.FindStringSubmatch(message)
		if len(matches) != 3 {
			continue
		}
		month, _ := strconv.Atoi(matches[1])
		day, _ := strconv.Atoi(matches[2])
		if t, ok := p.makeDate(now.Year(), month, day); ok {
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseDateTime extracts a date and an optional time-of-day phrase. A bare
// time phrase resolves against today. ok is false when the message carries
// neither, or names an impossible date.
func (p *Parser) ParseDateTime(message string) (time.Time, bool) {
	now := p.Now()

	target := now
	dateFound := false
	if t, ok := p.ParseDate(message); ok {
		target = t
		dateFound = true
	} else if hasAbsoluteDatePhrase(message) {
		// Something like 13月40日: refuse rather than silently use today.
		return time.Time{}, false
	}

	for _, tp := range timePatterns {
		matches := tp.re.FindStringSubmatch(message)
		if len(matches) == 0 {
			continue
		}
		hour, _ := strconv.Atoi(matches[tp.hourIndex])
		minute := 0
		if len(matches) > tp.hourIndex+1 && matches[tp.hourIndex+1] != "" {
			minute, _ = strconv.Atoi(matches[tp.hourIndex+1])
		}
		if tp.addNoon && hour < 12 {
			hour += 12
		}
		if hour > 23 || minute > 59 {
			continue
		}
		return time.Date(target.Year(), target.Month(), target.Day(), hour, minute, 0, 0, p.location), true
	}

	if !dateFound {
		return time.Time{}, false
	}
	return target, true
}

// DayRange returns the midnight-to-23:59:59 bounds of t's day.
func (p *Parser) DayRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.location)
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, p.location)
	return start, end
}

// MonthRange returns the first-instant and last-second bounds of a month.
func (p *Parser) MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, p.location)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// makeDate builds a concrete date in the current year, rejecting values that
// time.Date would silently normalize (e.g. 2月30日).
func (p *Parser) makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.location)
	if int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

var anyAbsoluteDate = regexp.MustCompile(`\d{1,2}月\d{1,2}[日号]`)

func hasAbsoluteDatePhrase(message string) bool {
	return anyAbsoluteDate.MatchString(message)
}
