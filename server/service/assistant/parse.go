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
)

// parsedSchedule carries the fields recognized in a message. Nil fields were
// not mentioned, so updates merge instead of overwriting.
type parsedSchedule struct {
	Title       *string
	StartTs     *int64
	EndTs       *int64
	Location    *string
	Description *string
}

// complete reports whether the payload could stand alone as a new event.
func (p *parsedSchedule) complete() bool {
	return p != nil && p.Title != nil && p.StartTs != nil && p.EndTs != nil
}

// Quick-edit time phrases. Qualified hours go first so 下午3点 is not
// consumed by the bare 点 pattern before the +12 shift applies.
var quickTimePatterns = []struct {
	re      *regexp.Regexp
	addNoon bool
}{
	{regexp.MustCompile(`改到(?:今天|明天|后天)?下午(\d{1,2})点(\d{1,2})?分?`), true},
	{regexp.MustCompile(`改到(?:今天|明天|后天)?晚上(\d{1,2})点(\d{1,2})?分?`), true},
	{regexp.MustCompile(`改到(?:今天|明天|后天)?上午(\d{1,2})点(\d{1,2})?分?`), false},
	{regexp.MustCompile(`改到(?:今天|明天|后天)?早上(\d{1,2})点(\d{1,2})?分?`), false},
	{regexp.MustCompile(`改到(?:今天|明天|后天)?(\d{1,2})[:：](\d{1,2})`), false},
	{regexp.MustCompile(`改到(?:今天|明天|后天)?(\d{1,2})点(\d{1,2})?分?`), false},
}

// Quick-edit location phrase. The trailing word anchors the match so pure
// time edits (改到下午3点) never read as a location change; time patterns
// are checked first for the same reason.
var quickLocationPattern = regexp.MustCompile(`改到(.*?)(室|厅|楼|层|会议室|教室|地点|场|中心)`)

const llmScheduleSystemPrompt = `你是一个日程信息提取助手。从用户消息中提取日程信息，以JSON格式返回：
{
  "is_schedule": true/false,
  "title": "日程标题",
  "start_time": "YYYY-MM-DD HH:mm",
  "end_time": "YYYY-MM-DD HH:mm",
  "location": "地点",
  "description": "描述"
}
如果消息不包含日程信息，is_schedule为false。
结束时间未提及时留空。地点未提及时留空。
只返回JSON，不要任何其他内容。`

type llmScheduleResponse struct {
	IsSchedule  bool   `json:"is_schedule"`
	Title       string `json:"title"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// parseSchedule recognizes schedule content in a message. Quick-edit phrases
// are resolved locally without a model round trip; everything else goes
// through structured extraction. Returns nil when nothing was recognized.
func (a *Assistant) parseSchedule(ctx context.Context, message string) *parsedSchedule {
	if parsed := a.parseQuickEdit(message); parsed != nil {
		return parsed
	}
	return a.parseScheduleLLM(ctx, message)
}

// parseQuickEdit handles the 改到… shortcuts: a new time of day, or a new
// location ending in a place word.
func (a *Assistant) parseQuickEdit(message string) *parsedSchedule {
	for _, qp := range quickTimePatterns {
		matches := qp.re.FindStringSubmatch(message)
		if len(matches) == 0 {
			continue
		}
		hour, _ := strconv.Atoi(matches[1])
		minute := 0
		if len(matches) > 2 && matches[2] != "" {
			minute, _ = strconv.Atoi(matches[2])
		}
		if qp.addNoon && hour < 12 {
			hour += 12
		}
		if hour > 23 || minute > 59 {
			continue
		}

		day := a.parser.Now()
		if t, ok := a.parser.ParseDate(message); ok {
			day = t
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
		startTs := start.Unix()
		endTs := start.Add(time.Hour).Unix()
		return &parsedSchedule{StartTs: &startTs, EndTs: &endTs}
	}

	if matches := quickLocationPattern.FindStringSubmatch(message); len(matches) == 3 {
		location := strings.TrimSpace(matches[1] + matches[2])
		if location != "" {
			return &parsedSchedule{Location: &location}
		}
	}

	return nil
}

// parseScheduleLLM asks the model to extract a full schedule payload.
func (a *Assistant) parseScheduleLLM(ctx context.Context, message string) *parsedSchedule {
	if a.llm == nil {
		return nil
	}
	if err := a.llmSem.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer a.llmSem.Release(1)

	now := a.parser.Now()
	prompt := fmt.Sprintf("当前时间：%s\n用户消息：%s", now.Format("2006-01-02 15:04"), message)

	response, err := a.llm.Chat(ctx, []ai.Message{
		ai.SystemPrompt(llmScheduleSystemPrompt),
		ai.UserMessage(prompt),
	})
	if err != nil {
		slog.Warn("schedule extraction failed", "error", err)
		return nil
	}

	var extracted llmScheduleResponse
	if err := json.Unmarshal([]byte(ai.CleanJSONResponse(response)), &extracted); err != nil {
		slog.Warn("schedule extraction returned invalid JSON", "error", err)
		return nil
	}
	if !extracted.IsSchedule || extracted.Title == "" || extracted.StartTime == "" {
		return nil
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", extracted.StartTime, now.Location())
	if err != nil {
		return nil
	}
	end := start.Add(time.Hour)
	if extracted.EndTime != "" {
		if t, err := time.ParseInLocation("2006-01-02 15:04", extracted.EndTime, now.Location()); err == nil && t.After(start) {
			end = t
		}
	}

	location := extracted.Location
	if location == "" {
		location = LocationUnspecified
	}

	startTs := start.Unix()
	endTs := end.Unix()
	return &parsedSchedule{
		Title:       &extracted.Title,
		StartTs:     &startTs,
		EndTs:       &endTs,
		Location:    &location,
		Description: &extracted.Description,
	}
}
