package apiv1

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/yhzhou/smartcal/store"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type chatHistoryMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"createdTs"`
}

// Chat runs one message through the assistant engine and persists both
// conversation turns.
func (s *APIV1Service) Chat(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	reply := s.Assistant.ProcessMessage(ctx, userID, message)

	// History is best-effort: a failed write never drops the reply.
	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		CreatorID: userID,
		Role:      store.ChatMessageRoleUser,
		Content:   message,
	}); err != nil {
		slog.Warn("failed to persist chat message", "error", err)
	}
	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		CreatorID: userID,
		Role:      store.ChatMessageRoleAssistant,
		Content:   reply,
	}); err != nil {
		slog.Warn("failed to persist chat message", "error", err)
	}

	return c.JSON(http.StatusOK, &chatResponse{Response: reply})
}

// GetChatHistory returns the user's conversation, oldest first.
func (s *APIV1Service) GetChatHistory(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)

	messages, err := s.Store.ListChatMessages(ctx, &store.FindChatMessage{CreatorID: &userID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list chat history").SetInternal(err)
	}

	history := make([]*chatHistoryMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, &chatHistoryMessage{
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedTs: m.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, history)
}

// ClearChatHistory drops the user's conversation history.
func (s *APIV1Service) ClearChatHistory(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)

	if err := s.Store.ClearChatMessages(ctx, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to clear chat history").SetInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}
