package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/yhzhou/smartcal/store"
)

func (d *DB) CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	stmt := `INSERT INTO chat_message (user_id, role, content) VALUES (?, ?, ?) RETURNING id, created_ts`
	if err := d.db.QueryRowContext(ctx, stmt, create.CreatorID, create.Role, create.Content).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create chat message: %w", err)
	}
	return create, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.CreatorID; v != nil {
		where, args = append(where, "chat_message.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, user_id, role, content, created_ts
		FROM chat_message
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY chat_message.id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ChatMessage, 0)
	for rows.Next() {
		var message store.ChatMessage
		if err := rows.Scan(&message.ID, &message.CreatorID, &message.Role, &message.Content, &message.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		list = append(list, &message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}

	return list, nil
}

func (d *DB) ClearChatMessages(ctx context.Context, creatorID int32) error {
	stmt := `DELETE FROM chat_message WHERE user_id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, creatorID); err != nil {
		return fmt.Errorf("failed to clear chat messages: %w", err)
	}
	return nil
}
