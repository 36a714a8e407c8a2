package assistant

import (
	"regexp"
	"strings"
)

// A bare number answers a pending disambiguation list.
var numberSelectionPattern = regexp.MustCompile(`^\d+$`)

// Natural-language questions about when something happens. These outrank
// the plain keyword-search branch because they carry a time dimension the
// model has to extract.
var smartQueryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(什么时候|何时|哪天).*?(有|的|是).*?(课|课程|会议|安排)`),
	regexp.MustCompile(`(\d{1,2})月.*?(有|的).*?(课|课程|会议|安排)`),
	regexp.MustCompile(`(今天|明天|后天|这周|本周|下周).*?(有|的).*?(课|课程|会议|安排)`),
}

var deletePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(删除|删掉|取消).*(日程|安排)`),
	regexp.MustCompile(`删.*`),
	regexp.MustCompile(`取消.*`),
}

var modifyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(修改|更改|调整).*(日程|安排)`),
	regexp.MustCompile(`改到.*`),
	regexp.MustCompile(`调到.*`),
	regexp.MustCompile(`改成.*`),
	regexp.MustCompile(`改为.*`),
	regexp.MustCompile(`换到.*`),
	regexp.MustCompile(`地点改.*`),
	regexp.MustCompile(`时间改.*`),
}

// 改 next to a time word also counts as a modify request even when none of
// the explicit patterns fire (e.g. 把会议改明天).
var modifyTimeWords = []string{"明天", "今天", "后天", "早上", "上午", "下午", "晚上", "点"}

// Quoted titles pin a modify request to a specific event.
var titleQuotePatterns = []*regexp.Regexp{
	regexp.MustCompile(`「(.+?)」`),
	regexp.MustCompile(`『(.+?)』`),
	regexp.MustCompile(`“(.+?)”`),
	regexp.MustCompile(`"(.+?)"`),
}

var searchTriggers = []string{"搜索", "查找", "查询"}

// Stop words stripped before keyword search.
var searchStopWords = []string{"搜索", "查找", "查询", "相关", "日程", "安排", "的"}

func matchAny(patterns []*regexp.Regexp, message string) bool {
	for _, p := range patterns {
		if p.MatchString(message) {
			return true
		}
	}
	return false
}

func isDeleteRequest(message string) bool {
	return matchAny(deletePatterns, message)
}

func isModifyRequest(message string) bool {
	if matchAny(modifyPatterns, message) {
		return true
	}
	if strings.Contains(message, "改") {
		for _, word := range modifyTimeWords {
			if strings.Contains(message, word) {
				return true
			}
		}
	}
	return false
}

func isSearchRequest(message string) bool {
	for _, trigger := range searchTriggers {
		if strings.Contains(message, trigger) {
			return true
		}
	}
	return false
}

// extractQuotedTitle pulls a title out of 「…」 or "…" quotes.
func extractQuotedTitle(message string) (string, bool) {
	for _, p := range titleQuotePatterns {
		if matches := p.FindStringSubmatch(message); len(matches) == 2 {
			title := strings.TrimSpace(matches[1])
			if title != "" {
				return title, true
			}
		}
	}
	return "", false
}

// extractKeywords strips search verbs and filler, splitting the rest into
// search terms.
func extractKeywords(message string) []string {
	cleaned := message
	for _, word := range searchStopWords {
		cleaned = strings.ReplaceAll(cleaned, word, " ")
	}
	return strings.Fields(cleaned)
}
