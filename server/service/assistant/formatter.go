package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/yhzhou/smartcal/store"
)

const (
	// LocationUnspecified is the sentinel meaning "no location given".
	LocationUnspecified = "未指定地点"

	eventDivider = "-------------------"

	replyNoEvents = "没有找到相关日程安排。"
)

// formatEvents renders events into the reply template: calendar glyph and
// title, clock glyph and time range, optional location and description
// lines, fixed divider between blocks.
func formatEvents(events []*store.Event, loc *time.Location) string {
	if len(events) == 0 {
		return replyNoEvents
	}

	var sb strings.Builder
	sb.WriteString("为您找到以下日程安排：\n")
	for _, event := range events {
		start := event.ParseStartTime().In(loc)
		end := event.ParseEndTime().In(loc)

		sb.WriteString(fmt.Sprintf("\n📅 %s\n", event.Title))
		sb.WriteString(fmt.Sprintf("⏰ %s - %s\n", start.Format("2006-01-02 15:04"), end.Format("15:04")))
		if event.Location != "" && event.Location != LocationUnspecified {
			sb.WriteString(fmt.Sprintf("📍 %s\n", event.Location))
		}
		if event.Description != "" {
			sb.WriteString(fmt.Sprintf("📝 %s\n", event.Description))
		}
		sb.WriteString(eventDivider)
	}

	return sb.String()
}

// formatEventSummary renders the single-event block used by the
// create/modify confirmations.
func formatEventSummary(title string, startTs, endTs int64, location string, loc *time.Location) string {
	start := time.Unix(startTs, 0).In(loc).Format("2006-01-02 15:04")
	end := time.Unix(endTs, 0).In(loc).Format("15:04")
	return fmt.Sprintf("📅 %s\n⏰ %s - %s\n📍 %s", title, start, end, location)
}

// formatCandidateList renders the numbered disambiguation options.
func formatCandidateList(header string, events []*store.Event, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(header)
	for i, event := range events {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, event.Title, event.ParseStartTime().In(loc).Format("15:04")))
	}
	return sb.String()
}
