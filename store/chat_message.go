package store

import "context"

// ChatMessageRole tags who produced a chat history record.
type ChatMessageRole string

const (
	ChatMessageRoleUser      ChatMessageRole = "user"
	ChatMessageRoleAssistant ChatMessageRole = "assistant"
)

// ChatMessage is one turn of the per-user conversation history. The intent
// engine never reads it; only the chat fallback's conversation memory does.
type ChatMessage struct {
	ID        int32
	CreatorID int32
	Role      ChatMessageRole
	Content   string
	CreatedTs int64
}

// FindChatMessage is the find condition for chat history records.
type FindChatMessage struct {
	CreatorID *int32
	Limit     *int
}

// CreateChatMessage appends a chat history record.
func (s *Store) CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error) {
	return s.driver.CreateChatMessage(ctx, create)
}

// ListChatMessages lists chat history records, oldest first.
func (s *Store) ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error) {
	return s.driver.ListChatMessages(ctx, find)
}

// ClearChatMessages removes the whole history of one user.
func (s *Store) ClearChatMessages(ctx context.Context, creatorID int32) error {
	return s.driver.ClearChatMessages(ctx, creatorID)
}
