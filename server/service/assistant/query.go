package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yhzhou/smartcal/plugin/ai"
	"github.com/yhzhou/smartcal/store"
)

const replyQueryFailed = "查询日程时出错，请稍后重试。"

const llmQuerySystemPrompt = `你是一个日程查询意图提取助手。从用户问题中提取查询条件，以JSON格式返回：
{
  "keywords": ["关键词1", "关键词2"],
  "time_range": {
    "type": "specific_month|specific_date|this_week|next_week|all",
    "month": 月份数字,
    "date": "YYYY-MM-DD"
  }
}
keywords是用户要找的日程主题词，不含时间词。
type为specific_month时填month，为specific_date时填date，其余留空。
只返回JSON，不要任何其他内容。`

type llmQueryIntent struct {
	Keywords  []string `json:"keywords"`
	TimeRange struct {
		Type  string `json:"type"`
		Month int    `json:"month"`
		Date  string `json:"date"`
	} `json:"time_range"`
}

// handleSmartQuery answers "什么时候有…" style questions through model
// intent extraction. ok is false when extraction is unavailable or failed,
// letting the message fall through to the simpler branches.
func (a *Assistant) handleSmartQuery(ctx context.Context, userID int32, message string) (string, bool) {
	if a.llm == nil {
		return "", false
	}
	if err := a.llmSem.Acquire(ctx, 1); err != nil {
		return "", false
	}

	response, err := a.llm.Chat(ctx, []ai.Message{
		ai.SystemPrompt(llmQuerySystemPrompt),
		ai.UserMessage(message),
	})
	a.llmSem.Release(1)
	if err != nil {
		slog.Warn("query intent extraction failed", "error", err)
		return "", false
	}

	var intent llmQueryIntent
	if err := json.Unmarshal([]byte(ai.CleanJSONResponse(response)), &intent); err != nil {
		slog.Warn("query intent returned invalid JSON", "error", err)
		return "", false
	}

	find := &store.FindEvent{CreatorID: &userID}
	if len(intent.Keywords) > 0 {
		find.Keywords = intent.Keywords
	}

	events, err := a.store.ListEvents(ctx, find)
	if err != nil {
		slog.Error("failed to list events", "error", err)
		return replyQueryFailed, true
	}

	events = filterByTimeRange(events, intent, a.parser.Now())
	return formatEvents(events, a.parser.Location()), true
}

// filterByTimeRange narrows keyword hits to the extracted time window.
// this_week/next_week/all pass through unfiltered.
func filterByTimeRange(events []*store.Event, intent llmQueryIntent, now time.Time) []*store.Event {
	switch intent.TimeRange.Type {
	case "specific_month":
		if intent.TimeRange.Month < 1 || intent.TimeRange.Month > 12 {
			return events
		}
		filtered := make([]*store.Event, 0, len(events))
		for _, event := range events {
			if int(event.ParseStartTime().Month()) == intent.TimeRange.Month {
				filtered = append(filtered, event)
			}
		}
		return filtered
	case "specific_date":
		target, err := time.ParseInLocation("2006-01-02", intent.TimeRange.Date, now.Location())
		if err != nil {
			return events
		}
		filtered := make([]*store.Event, 0, len(events))
		for _, event := range events {
			start := event.ParseStartTime().In(now.Location())
			if start.Year() == target.Year() && start.YearDay() == target.YearDay() {
				filtered = append(filtered, event)
			}
		}
		return filtered
	default:
		return events
	}
}

// Canned date-range queries, tried in order. The specific-date pattern must
// come before the month pattern or 3月5日的日程 reads as a month query.
var cannedQueryPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"today", regexp.MustCompile(`(今天|今日).*日程`)},
	{"tomorrow", regexp.MustCompile(`(明天|明日).*日程`)},
	{"week", regexp.MustCompile(`(本周|这周|一周|未来一周).*日程`)},
	{"all", regexp.MustCompile(`(所有|全部).*日程`)},
	{"date", regexp.MustCompile(`(\d{4}年)?(\d{1,2})月(\d{1,2})[日号].*日程`)},
	{"month", regexp.MustCompile(`(\d{4}年)?(\d{1,2})月.*日程`)},
}

// handleCannedQuery serves the fixed date-range lookups without touching
// the model. ok is false when no canned pattern matches.
func (a *Assistant) handleCannedQuery(ctx context.Context, userID int32, message string) (string, bool) {
	now := a.parser.Now()

	var rangeStart, rangeEnd time.Time
	var bounded bool
	matched := false

	for _, cq := range cannedQueryPatterns {
		matches := cq.re.FindStringSubmatch(message)
		if len(matches) == 0 {
			continue
		}
		matched = true

		switch cq.kind {
		case "today":
			rangeStart, rangeEnd = a.parser.DayRange(now)
			bounded = true
		case "tomorrow":
			rangeStart, rangeEnd = a.parser.DayRange(now.AddDate(0, 0, 1))
			bounded = true
		case "week":
			dayStart, _ := a.parser.DayRange(now)
			_, weekEnd := a.parser.DayRange(now.AddDate(0, 0, 7))
			rangeStart, rangeEnd = dayStart, weekEnd
			bounded = true
		case "all":
			bounded = false
		case "date":
			year := now.Year()
			if matches[1] != "" {
				year, _ = strconv.Atoi(strings.TrimSuffix(matches[1], "年"))
			}
			month, _ := strconv.Atoi(matches[2])
			day, _ := strconv.Atoi(matches[3])
			target := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
			if int(target.Month()) != month || target.Day() != day {
				return fmt.Sprintf("未找到%d月%d日的日程。", month, day), true
			}
			rangeStart, rangeEnd = a.parser.DayRange(target)
			bounded = true
		case "month":
			year := now.Year()
			if matches[1] != "" {
				year, _ = strconv.Atoi(strings.TrimSuffix(matches[1], "年"))
			}
			month, _ := strconv.Atoi(matches[2])
			if month < 1 || month > 12 {
				return replyNoEvents, true
			}
			rangeStart, rangeEnd = a.parser.MonthRange(year, time.Month(month))
			bounded = true
		}
		break
	}

	if !matched {
		return "", false
	}

	find := &store.FindEvent{CreatorID: &userID}
	if bounded {
		after := rangeStart.Unix()
		before := rangeEnd.Unix()
		find.StartTsAfter = &after
		find.StartTsBefore = &before
	}

	events, err := a.store.ListEvents(ctx, find)
	if err != nil {
		slog.Error("failed to list events", "error", err)
		return replyQueryFailed, true
	}
	return formatEvents(events, a.parser.Location()), true
}

// handleKeywordSearch serves 搜索/查找/查询 requests by LIKE-matching the
// remaining words against title, description and location.
func (a *Assistant) handleKeywordSearch(ctx context.Context, userID int32, keywords []string) string {
	events, err := a.store.ListEvents(ctx, &store.FindEvent{
		CreatorID: &userID,
		Keywords:  keywords,
	})
	if err != nil {
		slog.Error("failed to search events", "error", err)
		return replyQueryFailed
	}
	return formatEvents(events, a.parser.Location())
}
