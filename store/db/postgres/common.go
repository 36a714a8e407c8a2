package postgres

import (
	"fmt"
	"strings"
	"time"
)

// timeLayout is the text format of start_time/end_time columns. Times are
// naive local time, matching how the assistant resolves date phrases.
const timeLayout = "2006-01-02 15:04:05"

// placeholder returns a numbered placeholder for postgres ($1, $2, ...).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns placeholders $start..$start+n-1.
func placeholders(start, n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(start+i))
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
