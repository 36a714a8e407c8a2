package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yhzhou/smartcal/store"
)

func TestSelectionWithoutPendingState(t *testing.T) {
	a := newTestAssistant(newFakeStore(), nil)

	reply := a.ProcessMessage(context.Background(), 1, "2")
	require.Equal(t, replyNoPendingSelection, reply)
}

func TestDeleteSingleEvent(t *testing.T) {
	fs := newFakeStore()
	fs.addEvent(1, "晨会", time.Date(2024, 3, 16, 9, 0, 0, 0, testLocation))
	a := newTestAssistant(fs, nil)

	reply := a.ProcessMessage(context.Background(), 1, "删除明天的日程")
	require.Equal(t, "已删除日程：\n📅 晨会\n⏰ 09:00", reply)
	require.Empty(t, fs.events)
}

func TestDeleteDisambiguation(t *testing.T) {
	fs := newFakeStore()
	fs.addEvent(1, "晨会", time.Date(2024, 3, 16, 9, 0, 0, 0, testLocation))
	fs.addEvent(1, "项目评审", time.Date(2024, 3, 16, 14, 0, 0, 0, testLocation))
	a := newTestAssistant(fs, nil)
	ctx := context.Background()

	reply := a.ProcessMessage(ctx, 1, "删除明天的日程")
	require.Contains(t, reply, "找到多个日程，请选择要删除哪一个：")
	require.Contains(t, reply, "1. 晨会 (09:00)")
	require.Contains(t, reply, "2. 项目评审 (14:00)")

	// An out-of-range answer keeps the list alive.
	reply = a.ProcessMessage(ctx, 1, "5")
	require.Equal(t, replyInvalidSelection, reply)

	reply = a.ProcessMessage(ctx, 1, "2")
	require.Contains(t, reply, "已删除日程：\n📅 项目评审")
	require.Len(t, fs.events, 1)

	// The selection was consumed.
	reply = a.ProcessMessage(ctx, 1, "1")
	require.Equal(t, replyNoPendingSelection, reply)
}

func TestDeleteRequiresDate(t *testing.T) {
	a := newTestAssistant(newFakeStore(), nil)

	reply := a.ProcessMessage(context.Background(), 1, "删除日程")
	require.Equal(t, replyDeleteNeedsDate, reply)
}

func TestDeleteWithoutDateListsAllEvents(t *testing.T) {
	fs := newFakeStore()
	fs.addEvent(1, "晨会", time.Date(2024, 3, 16, 9, 0, 0, 0, testLocation))
	fs.addEvent(1, "月度总结", time.Date(2024, 3, 28, 14, 0, 0, 0, testLocation))
	a := newTestAssistant(fs, nil)
	ctx := context.Background()

	reply := a.ProcessMessage(ctx, 1, "删除日程")
	require.Contains(t, reply, "找到多个日程，请选择要删除哪一个：")
	require.Contains(t, reply, "1. 晨会")
	require.Contains(t, reply, "2. 月度总结")

	reply = a.ProcessMessage(ctx, 1, "1")
	require.Contains(t, reply, "已删除日程：\n📅 晨会")
	require.Len(t, fs.events, 1)
}

func TestDeleteNothingFound(t *testing.T) {
	a := newTestAssistant(newFakeStore(), nil)

	reply := a.ProcessMessage(context.Background(), 1, "删除明天的日程")
	require.Equal(t, "未找到2024-03-16的日程。", reply)
}

func TestDeleteDoesNotTouchOtherUsers(t *testing.T) {
	fs := newFakeStore()
	fs.addEvent(2, "别人的会", time.Date(2024, 3, 16, 9, 0, 0, 0, testLocation))
	a := newTestAssistant(fs, nil)

	reply := a.ProcessMessage(context.Background(), 1, "删除明天的日程")
	require.Equal(t, "未找到2024-03-16的日程。", reply)
	require.Len(t, fs.events, 1)
}

func TestModifyDisambiguationThenQuickEdit(t *testing.T) {
	fs := newFakeStore()
	fs.addEvent(1, "晨会", time.Date(2024, 3, 16, 9, 0, 0, 0, testLocation))
	event := fs.addEvent(1, "项目评审", time.Date(2024, 3, 16, 14, 0, 0, 0, testLocation))
	a := newTestAssistant(fs, nil)
	ctx := context.Background()

	reply := a.ProcessMessage(ctx, 1, "修改明天的日程")
	require.Contains(t, reply, "找到多个日程，请指定要修改哪一个：")

	reply = a.ProcessMessage(ctx, 1, "2")
	require.Equal(t, replyModifyPrompt, reply)

	reply = a.ProcessMessage(ctx, 1, "改到明天下午4点")
	require.Contains(t, reply, "已成功修改日程：")

	updated := fs.events[event.ID]
	require.Equal(t, time.Date(2024, 3, 16, 16, 0, 0, 0, testLocation).Unix(), updated.StartTs)
	require.Equal(t, time.Date(2024, 3, 16, 17, 0, 0, 0, testLocation).Unix(), updated.EndTs)
}

func TestModifyParseFailureKeepsSelection(t *testing.T) {
	fs := newFakeStore()
	event := fs.addEvent(1, "晨会", time.Date(2024, 3, 16, 9, 0, 0, 0, testLocation))
	fs.addEvent(1, "项目评审", time.Date(2024, 3, 16, 14, 0, 0, 0, testLocation))
	a := newTestAssistant(fs, nil)
	ctx := context.Background()

	a.ProcessMessage(ctx, 1, "修改明天的日程")
	a.ProcessMessage(ctx, 1, "1")

	// Unparsable payload: the selection survives for a rephrase.
	reply := a.ProcessMessage(ctx, 1, "时间改一下")
	require.Equal(t, replyModifyUnparsable, reply)

	reply = a.ProcessMessage(ctx, 1, "改到明天上午10点")
	require.Contains(t, reply, "已成功修改日程：")
	require.Equal(t, time.Date(2024, 3, 16, 10, 0, 0, 0, testLocation).Unix(), fs.events[event.ID].StartTs)
}

func TestModifyByQuotedTitle(t *testing.T) {
	fs := newFakeStore()
	event := fs.addEvent(1, "周会", time.Date(2024, 3, 16, 9, 0, 0, 0, testLocation))
	a := newTestAssistant(fs, nil)

	reply := a.ProcessMessage(context.Background(), 1, "把「周会」改到明天下午3点")
	require.Contains(t, reply, "已成功修改日程：")
	require.Equal(t, time.Date(2024, 3, 16, 15, 0, 0, 0, testLocation).Unix(), fs.events[event.ID].StartTs)
}

func TestModifyByQuotedTitleNotFound(t *testing.T) {
	a := newTestAssistant(newFakeStore(), nil)

	reply := a.ProcessMessage(context.Background(), 1, "把「周会」改到明天下午3点")
	require.Equal(t, "未找到标题包含「周会」的日程。", reply)
}

func TestModifyNeedsTarget(t *testing.T) {
	a := newTestAssistant(newFakeStore(), nil)

	reply := a.ProcessMessage(context.Background(), 1, "改成线上会议")
	require.Equal(t, replyModifyNeedsTarget, reply)
}

func TestModifyLocationQuickEdit(t *testing.T) {
	fs := newFakeStore()
	event := fs.addEvent(1, "周会", time.Date(2024, 3, 16, 9, 0, 0, 0, testLocation))
	a := newTestAssistant(fs, nil)

	reply := a.ProcessMessage(context.Background(), 1, "「周会」的地点改到3号楼")
	require.Contains(t, reply, "已成功修改日程：")
	require.Equal(t, "3号楼", fs.events[event.ID].Location)
	// The time part is untouched.
	require.Equal(t, time.Date(2024, 3, 16, 9, 0, 0, 0, testLocation).Unix(), fs.events[event.ID].StartTs)
}

func TestCreateViaExtraction(t *testing.T) {
	fs := newFakeStore()
	llm := &fakeLLM{responses: []string{
		"```json\n{\"is_schedule\": true, \"title\": \"产品评审会\", \"start_time\": \"2024-03-16 14:00\", \"end_time\": \"\", \"location\": \"\", \"description\": \"\"}\n```",
	}}
	a := newTestAssistant(fs, llm)

	reply := a.ProcessMessage(context.Background(), 1, "明天下午开产品评审会")
	require.Contains(t, reply, "已成功添加日程：")
	require.Contains(t, reply, "产品评审会")
	require.Contains(t, reply, LocationUnspecified)

	require.Len(t, fs.events, 1)
	for _, event := range fs.events {
		require.Equal(t, time.Date(2024, 3, 16, 14, 0, 0, 0, testLocation).Unix(), event.StartTs)
		// End time defaults to one hour after start.
		require.Equal(t, time.Date(2024, 3, 16, 15, 0, 0, 0, testLocation).Unix(), event.EndTs)
	}
}

func TestCreateThenQueryRoundTrip(t *testing.T) {
	fs := newFakeStore()
	llm := &fakeLLM{responses: []string{
		`{"is_schedule": true, "title": "开会", "start_time": "2024-03-16 15:00", "end_time": "2024-03-16 16:00", "location": "A会议室", "description": ""}`,
		// The follow-up query is probed for schedule content too.
		`{"is_schedule": false}`,
	}}
	a := newTestAssistant(fs, llm)
	ctx := context.Background()

	reply := a.ProcessMessage(ctx, 1, "明天下午3点开会，地点在A会议室")
	require.Contains(t, reply, "已成功添加日程：")

	reply = a.ProcessMessage(ctx, 1, "明天的日程")
	require.Contains(t, reply, "📅 开会")
	require.Contains(t, reply, "⏰ 2024-03-16 15:00 - 16:00")
	require.Contains(t, reply, "📍 A会议室")
}

func TestNonScheduleExtractionFallsToChat(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"is_schedule": false}`,
		"今天杭州多云，适合出门。",
	}}
	a := newTestAssistant(newFakeStore(), llm)

	reply := a.ProcessMessage(context.Background(), 1, "明天杭州天气怎么样")
	require.Equal(t, "今天杭州多云，适合出门。", reply)
}

func TestSmartQuery(t *testing.T) {
	fs := newFakeStore()
	fs.addEvent(1, "高等数学课", time.Date(2024, 3, 18, 8, 0, 0, 0, testLocation))
	fs.addEvent(1, "部门周会", time.Date(2024, 3, 18, 10, 0, 0, 0, testLocation))
	llm := &fakeLLM{responses: []string{
		`{"keywords": ["数学"], "time_range": {"type": "all"}}`,
	}}
	a := newTestAssistant(fs, llm)

	reply := a.ProcessMessage(context.Background(), 1, "我什么时候有数学课")
	require.Contains(t, reply, "高等数学课")
	require.NotContains(t, reply, "部门周会")
}

func TestSmartQueryMonthFilter(t *testing.T) {
	fs := newFakeStore()
	fs.addEvent(1, "三月的课", time.Date(2024, 3, 18, 8, 0, 0, 0, testLocation))
	fs.addEvent(1, "四月的课", time.Date(2024, 4, 2, 8, 0, 0, 0, testLocation))
	llm := &fakeLLM{responses: []string{
		`{"keywords": ["课"], "time_range": {"type": "specific_month", "month": 4}}`,
	}}
	a := newTestAssistant(fs, llm)

	reply := a.ProcessMessage(context.Background(), 1, "4月有哪些课")
	require.Contains(t, reply, "四月的课")
	require.NotContains(t, reply, "三月的课")
}

func TestSmartQueryFailureFallsThrough(t *testing.T) {
	llm := &fakeLLM{err: errors.New("boom")}
	a := newTestAssistant(newFakeStore(), llm)

	// Intent extraction and the chat fallback both fail.
	reply := a.ProcessMessage(context.Background(), 1, "我什么时候有数学课")
	require.Equal(t, replyChatFailed, reply)
}

func TestCannedQueries(t *testing.T) {
	fs := newFakeStore()
	fs.addEvent(1, "今天的会", time.Date(2024, 3, 15, 14, 0, 0, 0, testLocation))
	fs.addEvent(1, "明天的会", time.Date(2024, 3, 16, 9, 0, 0, 0, testLocation))
	fs.addEvent(1, "下月的会", time.Date(2024, 4, 10, 9, 0, 0, 0, testLocation))
	a := newTestAssistant(fs, nil)
	ctx := context.Background()

	reply := a.ProcessMessage(ctx, 1, "今天有什么日程")
	require.Contains(t, reply, "今天的会")
	require.NotContains(t, reply, "明天的会")

	reply = a.ProcessMessage(ctx, 1, "明天的日程")
	require.Contains(t, reply, "明天的会")
	require.NotContains(t, reply, "今天的会")

	reply = a.ProcessMessage(ctx, 1, "3月16日的日程")
	require.Contains(t, reply, "明天的会")

	reply = a.ProcessMessage(ctx, 1, "4月的日程")
	require.Contains(t, reply, "下月的会")
	require.NotContains(t, reply, "今天的会")

	reply = a.ProcessMessage(ctx, 1, "所有日程")
	require.Contains(t, reply, "今天的会")
	require.Contains(t, reply, "明天的会")
	require.Contains(t, reply, "下月的会")
}

func TestCannedQueryEmpty(t *testing.T) {
	a := newTestAssistant(newFakeStore(), nil)

	reply := a.ProcessMessage(context.Background(), 1, "今天有什么日程")
	require.Equal(t, replyNoEvents, reply)
}

func TestKeywordSearch(t *testing.T) {
	fs := newFakeStore()
	fs.addEvent(1, "部门周会", time.Date(2024, 3, 18, 10, 0, 0, 0, testLocation))
	fs.addEvent(1, "体检", time.Date(2024, 3, 19, 8, 0, 0, 0, testLocation))
	a := newTestAssistant(fs, nil)

	reply := a.ProcessMessage(context.Background(), 1, "搜索周会相关的日程")
	require.Contains(t, reply, "部门周会")
	require.NotContains(t, reply, "体检")
}

func TestChatFallbackUnavailable(t *testing.T) {
	a := newTestAssistant(newFakeStore(), nil)

	reply := a.ProcessMessage(context.Background(), 1, "你好呀")
	require.Equal(t, replyLLMUnavailable, reply)
}

func TestChatFallbackReplaysHistory(t *testing.T) {
	fs := newFakeStore()
	fs.chats = []*store.ChatMessage{
		{CreatorID: 1, Role: store.ChatMessageRoleUser, Content: "我叫小周"},
		{CreatorID: 1, Role: store.ChatMessageRoleAssistant, Content: "你好，小周！"},
		{CreatorID: 2, Role: store.ChatMessageRoleUser, Content: "别人的消息"},
	}
	llm := &fakeLLM{responses: []string{"当然记得，小周。"}}
	a := newTestAssistant(fs, llm)

	reply := a.ProcessMessage(context.Background(), 1, "还记得我的名字吗")
	require.Equal(t, "当然记得，小周。", reply)

	// The schedule-extraction probe calls the model first; the chat turn is
	// the last call.
	require.NotEmpty(t, llm.calls)
	messages := llm.calls[len(llm.calls)-1]
	// System prompt, two history turns, current question.
	require.Len(t, messages, 4)
	require.Equal(t, "system", messages[0].Role)
	require.Equal(t, "我叫小周", messages[1].Content)
	require.Equal(t, "assistant", messages[2].Role)
	require.Contains(t, messages[3].Content, "还记得我的名字吗")
}
