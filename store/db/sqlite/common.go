package sqlite

import (
	"strings"
	"time"
)

// timeLayout is the text format of start_time/end_time columns. Times are
// naive local time, matching how the assistant resolves date phrases.
const timeLayout = "2006-01-02 15:04:05"

// placeholder returns a placeholder for SQLite (uses ?).
func placeholder(int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite.
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// formatTs renders a unix timestamp as column text.
func formatTs(ts int64) string {
	return time.Unix(ts, 0).Format(timeLayout)
}

// parseTs reads column text back into a unix timestamp.
func parseTs(s string) int64 {
	t, err := time.ParseInLocation(timeLayout, s, time.Local)
	if err != nil {
		return 0
	}
	return t.Unix()
}
