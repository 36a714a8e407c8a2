// Package assistant implements the conversational scheduling engine: it
// classifies Chinese chat messages into calendar intents and executes them
// against the event store, holding per-user disambiguation state between
// turns.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/semaphore"

	"github.com/yhzhou/smartcal/plugin/ai"
	"github.com/yhzhou/smartcal/plugin/ai/chinesetime"
	"github.com/yhzhou/smartcal/store"
)

const (
	replyNoPendingSelection = "抱歉，请先告诉我您要操作哪个日程。"
	replyInvalidSelection   = "抱歉，请输入正确的序号。"
	replyUnknownOperation   = "请指定要执行的操作。"
	replyDeleteFailed       = "删除日程失败，请稍后重试。"
	replyCreateFailed       = "添加日程时出错，请稍后重试。"
	replyUpdateFailed       = "更新日程失败，请稍后重试。"
	replyDeleteNeedsDate    = "请指定要删除哪一天的日程。"
	replyModifyNeedsTarget  = "请指定要修改哪个日程，可以用引号括起来或者指定具体时间。"
	replyModifyUnparsable   = "无法解析要修改的内容，请确保包含新的日程信息。"
	replyLLMUnavailable     = "抱歉，AI 助手当前不可用，但您仍然可以使用日历功能来管理日程。"
	replyChatFailed         = "抱歉，系统暂时无法处理您的请求。请稍后重试或使用日历功能来管理日程。"

	replyModifyPrompt = "好的，您要如何修改这个日程？请告诉我新的时间、标题或地点。您可以：\n- 改到下午3点\n- 改成线上会议\n- 地点改到会议室A\n- 改到明天下午2点"

	headerDeleteCandidates = "找到多个日程，请选择要删除哪一个：\n"
	headerModifyCandidates = "找到多个日程，请指定要修改哪一个：\n"
)

// How many persisted turns the free-chat branch replays to the model.
const chatHistoryWindow = 20

// Store is the persistence surface the engine needs. *store.Store satisfies
// it; tests plug in fakes.
type Store interface {
	CreateEvent(ctx context.Context, create *store.Event) (*store.Event, error)
	ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error)
	UpdateEvent(ctx context.Context, update *store.UpdateEvent) error
	DeleteEvent(ctx context.Context, delete *store.DeleteEvent) error
	ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error)
}

// Assistant is the conversational scheduling engine.
type Assistant struct {
	store    Store
	llm      ai.LLMService // nil when no provider is configured
	parser   *chinesetime.Parser
	sessions *sessionManager
	llmSem   *semaphore.Weighted
}

// maxConcurrentLLMCalls caps in-flight model round trips across all users.
const maxConcurrentLLMCalls = 8

// New creates the engine. llm may be nil; every model-backed branch then
// degrades to its deterministic fallback.
func New(s Store, llm ai.LLMService, parser *chinesetime.Parser) *Assistant {
	return &Assistant{
		store:    s,
		llm:      llm,
		parser:   parser,
		sessions: newSessionManager(),
		llmSem:   semaphore.NewWeighted(maxConcurrentLLMCalls),
	}
}

// ProcessMessage classifies one chat message and executes the matching
// action. Branches are tried in a fixed priority order; the first match
// wins. Every path returns a user-facing reply, never an error.
func (a *Assistant) ProcessMessage(ctx context.Context, userID int32, message string) string {
	message = strings.TrimSpace(message)
	slog.Debug("processing message", "user_id", userID, "length", len(message))

	// 1. A bare number completes a pending disambiguation.
	if numberSelectionPattern.MatchString(message) {
		return a.handleSelection(ctx, userID, message)
	}

	// 2. Natural-language time questions, via model intent extraction.
	if matchAny(smartQueryPatterns, message) {
		if reply, ok := a.handleSmartQuery(ctx, userID, message); ok {
			return reply
		}
	}

	// 3. Delete.
	if isDeleteRequest(message) {
		return a.handleDelete(ctx, userID, message)
	}

	// 4. Modify.
	if isModifyRequest(message) {
		return a.handleModify(ctx, userID, message)
	}

	// 5. Create, when the message carries a full schedule payload.
	if parsed := a.parseSchedule(ctx, message); parsed.complete() {
		return a.handleCreate(ctx, userID, parsed)
	}

	// 6. Keyword search.
	if isSearchRequest(message) {
		if keywords := extractKeywords(message); len(keywords) > 0 {
			return a.handleKeywordSearch(ctx, userID, keywords)
		}
	}

	// 7. Canned date-range queries.
	if reply, ok := a.handleCannedQuery(ctx, userID, message); ok {
		return reply
	}

	// 8. Free chat.
	return a.handleChat(ctx, userID, message)
}

// handleSelection resolves a numbered answer against the pending candidate
// list. An out-of-range number keeps the list alive so the user can retry.
func (a *Assistant) handleSelection(ctx context.Context, userID int32, message string) string {
	state := a.sessions.get(userID)
	if state == nil || len(state.Candidates) == 0 {
		return replyNoPendingSelection
	}

	index, err := strconv.Atoi(message)
	if err != nil || index < 1 || index > len(state.Candidates) {
		return replyInvalidSelection
	}
	selected := state.Candidates[index-1]

	switch state.Operation {
	case operationDelete:
		a.sessions.clear(userID)
		return a.deleteEvent(ctx, userID, selected)
	case operationModify:
		a.sessions.set(userID, &sessionState{Operation: operationModify, Selected: selected})
		return replyModifyPrompt
	default:
		a.sessions.clear(userID)
		return replyUnknownOperation
	}
}

// handleDelete resolves the target day when the message names one, then
// deletes directly on a single hit or stores a candidate list on several.
// Without a date phrase all of the user's events are candidates.
func (a *Assistant) handleDelete(ctx context.Context, userID int32, message string) string {
	var events []*store.Event
	var err error

	target, hasDate := a.parser.ParseDateTime(message)
	if hasDate {
		events, err = a.listDayEvents(ctx, userID, target)
	} else {
		events, err = a.store.ListEvents(ctx, &store.FindEvent{CreatorID: &userID})
	}
	if err != nil {
		slog.Error("failed to list events", "error", err)
		return replyQueryFailed
	}

	switch len(events) {
	case 0:
		if hasDate {
			return fmt.Sprintf("未找到%s的日程。", target.Format("2006-01-02"))
		}
		return replyDeleteNeedsDate
	case 1:
		return a.deleteEvent(ctx, userID, events[0])
	default:
		a.sessions.set(userID, &sessionState{Candidates: events, Operation: operationDelete})
		return formatCandidateList(headerDeleteCandidates, events, a.parser.Location())
	}
}

func (a *Assistant) deleteEvent(ctx context.Context, userID int32, event *store.Event) string {
	if err := a.store.DeleteEvent(ctx, &store.DeleteEvent{ID: event.ID, CreatorID: userID}); err != nil {
		slog.Error("failed to delete event", "event_id", event.ID, "error", err)
		return replyDeleteFailed
	}
	start := event.ParseStartTime().In(a.parser.Location())
	return fmt.Sprintf("已删除日程：\n📅 %s\n⏰ %s", event.Title, start.Format("15:04"))
}

// handleModify covers three shapes: an edit payload for an already selected
// event, a quoted-title target, and a date-scoped target.
func (a *Assistant) handleModify(ctx context.Context, userID int32, message string) string {
	if state := a.sessions.get(userID); state != nil && state.Selected != nil {
		return a.applyModify(ctx, userID, state.Selected, message)
	}

	if title, ok := extractQuotedTitle(message); ok {
		return a.modifyByTitle(ctx, userID, title, message)
	}

	target, ok := a.parser.ParseDate(message)
	if !ok {
		return replyModifyNeedsTarget
	}

	events, err := a.listDayEvents(ctx, userID, target)
	if err != nil {
		slog.Error("failed to list events", "error", err)
		return replyQueryFailed
	}

	switch len(events) {
	case 0:
		return fmt.Sprintf("未找到%s的日程。", target.Format("2006-01-02"))
	case 1:
		return a.applyModify(ctx, userID, events[0], message)
	default:
		a.sessions.set(userID, &sessionState{Candidates: events, Operation: operationModify})
		return formatCandidateList(headerModifyCandidates, events, a.parser.Location())
	}
}

func (a *Assistant) modifyByTitle(ctx context.Context, userID int32, title, message string) string {
	find := &store.FindEvent{CreatorID: &userID, Keywords: []string{title}}
	if target, ok := a.parser.ParseDate(message); ok {
		dayStart, dayEnd := a.parser.DayRange(target)
		after := dayStart.Unix()
		before := dayEnd.Unix()
		find.StartTsAfter = &after
		find.StartTsBefore = &before
	}

	events, err := a.store.ListEvents(ctx, find)
	if err != nil {
		slog.Error("failed to list events", "error", err)
		return replyQueryFailed
	}

	switch len(events) {
	case 0:
		return fmt.Sprintf("未找到标题包含「%s」的日程。", title)
	case 1:
		return a.applyModify(ctx, userID, events[0], message)
	default:
		a.sessions.set(userID, &sessionState{Candidates: events, Operation: operationModify})
		return formatCandidateList(headerModifyCandidates, events, a.parser.Location())
	}
}

// applyModify parses the edit payload and merges it into the event. A parse
// failure keeps the selection so the user can rephrase; success and
// not-found both drop it.
func (a *Assistant) applyModify(ctx context.Context, userID int32, event *store.Event, message string) string {
	parsed := a.parseSchedule(ctx, message)
	if parsed == nil {
		return replyModifyUnparsable
	}

	update := &store.UpdateEvent{
		ID:          event.ID,
		CreatorID:   userID,
		Title:       parsed.Title,
		Description: parsed.Description,
		Location:    parsed.Location,
		StartTs:     parsed.StartTs,
		EndTs:       parsed.EndTs,
	}
	if err := a.store.UpdateEvent(ctx, update); err != nil {
		a.sessions.clear(userID)
		if errors.Is(err, store.ErrEventNotFound) {
			return "未找到要修改的日程，它可能已被删除。"
		}
		slog.Error("failed to update event", "event_id", event.ID, "error", err)
		return replyUpdateFailed
	}
	a.sessions.clear(userID)

	title := event.Title
	if parsed.Title != nil {
		title = *parsed.Title
	}
	startTs := event.StartTs
	if parsed.StartTs != nil {
		startTs = *parsed.StartTs
	}
	endTs := event.EndTs
	if parsed.EndTs != nil {
		endTs = *parsed.EndTs
	}
	location := event.Location
	if parsed.Location != nil {
		location = *parsed.Location
	}
	if location == "" {
		location = LocationUnspecified
	}

	return "已成功修改日程：\n" + formatEventSummary(title, startTs, endTs, location, a.parser.Location())
}

// handleCreate persists a fully extracted schedule payload.
func (a *Assistant) handleCreate(ctx context.Context, userID int32, parsed *parsedSchedule) string {
	event := &store.Event{
		UID:       shortuuid.New(),
		CreatorID: userID,
		Title:     *parsed.Title,
		StartTs:   *parsed.StartTs,
		EndTs:     *parsed.EndTs,
		Location:  LocationUnspecified,
	}
	if parsed.Location != nil && *parsed.Location != "" {
		event.Location = *parsed.Location
	}
	if parsed.Description != nil {
		event.Description = *parsed.Description
	}

	created, err := a.store.CreateEvent(ctx, event)
	if err != nil {
		slog.Error("failed to create event", "error", err)
		return replyCreateFailed
	}

	return "已成功添加日程：\n" + formatEventSummary(created.Title, created.StartTs, created.EndTs, created.Location, a.parser.Location())
}

const chatSystemPrompt = "你是一个专业的日程管理助手。你可以帮助用户管理他们的日程安排，包括添加、修改、删除和查询日程。回答语气要温和友善，不要使用命令的语气。"

// handleChat is the terminal branch: free conversation with the model,
// replaying recent persisted history for continuity.
func (a *Assistant) handleChat(ctx context.Context, userID int32, message string) string {
	if a.llm == nil {
		return replyLLMUnavailable
	}
	if err := a.llmSem.Acquire(ctx, 1); err != nil {
		return replyChatFailed
	}
	defer a.llmSem.Release(1)

	messages := []ai.Message{ai.SystemPrompt(chatSystemPrompt)}

	history, err := a.store.ListChatMessages(ctx, &store.FindChatMessage{CreatorID: &userID})
	if err != nil {
		slog.Warn("failed to load chat history", "error", err)
	} else {
		if len(history) > chatHistoryWindow {
			history = history[len(history)-chatHistoryWindow:]
		}
		for _, m := range history {
			switch m.Role {
			case store.ChatMessageRoleAssistant:
				messages = append(messages, ai.AssistantMessage(m.Content))
			default:
				messages = append(messages, ai.UserMessage(m.Content))
			}
		}
	}

	now := a.parser.Now()
	messages = append(messages, ai.UserMessage(fmt.Sprintf("当前时间：%s\n用户问题：%s", now.Format("2006-01-02 15:04"), message)))

	reply, err := a.llm.Chat(ctx, messages)
	if err != nil {
		slog.Error("chat completion failed", "error", err)
		return replyChatFailed
	}
	return reply
}

func (a *Assistant) listDayEvents(ctx context.Context, userID int32, target time.Time) ([]*store.Event, error) {
	dayStart, dayEnd := a.parser.DayRange(target)
	after := dayStart.Unix()
	before := dayEnd.Unix()
	return a.store.ListEvents(ctx, &store.FindEvent{
		CreatorID:     &userID,
		StartTsAfter:  &after,
		StartTsBefore: &before,
	})
}
