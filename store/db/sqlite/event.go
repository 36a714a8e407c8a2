package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/yhzhou/smartcal/store"
)

func (d *DB) CreateEvent(ctx context.Context, create *store.Event) (*store.Event, error) {
	fields := []string{"uid", "user_id", "title", "description", "location", "start_time", "end_time", "is_all_day"}
	args := []any{
		create.UID, create.CreatorID, create.Title, create.Description, create.Location,
		formatTs(create.StartTs), formatTs(create.EndTs), create.AllDay,
	}

	stmt := `INSERT INTO event (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id, created_ts, updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return create, nil
}

func (d *DB) ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "event.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "event.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "event.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.StartTsAfter; v != nil {
		where, args = append(where, "event.start_time >= "+placeholder(len(args)+1)), append(args, formatTs(*v))
	}
	if v := find.StartTsBefore; v != nil {
		where, args = append(where, "event.start_time <= "+placeholder(len(args)+1)), append(args, formatTs(*v))
	}
	if len(find.Keywords) > 0 {
		conditions := []string{}
		for _, keyword := range find.Keywords {
			pattern := "%" + keyword + "%"
			conditions = append(conditions, "(event.title LIKE ? OR event.description LIKE ? OR event.location LIKE ?)")
			args = append(args, pattern, pattern, pattern)
		}
		where = append(where, "("+strings.Join(conditions, " OR ")+")")
	}

	query := `
		SELECT
			id, uid, user_id, title, description, location,
			start_time, end_time, is_all_day, created_ts, updated_ts
		FROM event
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY event.start_time ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Event, 0)
	for rows.Next() {
		var event store.Event
		var startTime, endTime string

		if err := rows.Scan(
			&event.ID,
			&event.UID,
			&event.CreatorID,
			&event.Title,
			&event.Description,
			&event.Location,
			&startTime,
			&endTime,
			&event.AllDay,
			&event.CreatedTs,
			&event.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		event.StartTs = parseTs(startTime)
		event.EndTs = parseTs(endTime)
		list = append(list, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateEvent(ctx context.Context, update *store.UpdateEvent) error {
	set, args := []string{}, []any{}

	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Location; v != nil {
		set, args = append(set, "location = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.StartTs; v != nil {
		set, args = append(set, "start_time = "+placeholder(len(args)+1)), append(args, formatTs(*v))
	}
	if v := update.EndTs; v != nil {
		set, args = append(set, "end_time = "+placeholder(len(args)+1)), append(args, formatTs(*v))
	}
	if v := update.AllDay; v != nil {
		set, args = append(set, "is_all_day = "+placeholder(len(args)+1)), append(args, *v)
	}

	if len(set) == 0 {
		return nil
	}

	set = append(set, "updated_ts = strftime('%s', 'now')")
	args = append(args, update.ID, update.CreatorID)

	stmt := `UPDATE event SET ` + strings.Join(set, ", ") + ` WHERE id = ? AND user_id = ?`
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return store.ErrEventNotFound
	}

	return nil
}

func (d *DB) DeleteEvent(ctx context.Context, delete *store.DeleteEvent) error {
	stmt := `DELETE FROM event WHERE id = ? AND user_id = ?`
	result, err := d.db.ExecContext(ctx, stmt, delete.ID, delete.CreatorID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return store.ErrEventNotFound
	}

	return nil
}
