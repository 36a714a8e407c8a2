package store

import (
	"context"
	"time"
)

// Event is the object representing a calendar event.
type Event struct {
	ID          int32
	UID         string
	CreatorID   int32
	Title       string
	Description string
	Location    string
	StartTs     int64
	EndTs       int64
	AllDay      bool
	CreatedTs   int64
	UpdatedTs   int64
}

// FindEvent is the find condition for events. CreatorID is mandatory: an
// event is never visible outside its owner.
type FindEvent struct {
	ID        *int32
	UID       *string
	CreatorID *int32

	// Time range filters on start time (inclusive).
	StartTsAfter  *int64
	StartTsBefore *int64

	// Keywords match title, description or location (OR-combined LIKE).
	Keywords []string

	Limit  *int
	Offset *int
}

// UpdateEvent is the update request for an event. Nil fields keep the
// current row value, so partial payloads merge instead of replacing.
type UpdateEvent struct {
	ID        int32
	CreatorID int32

	Title       *string
	Description *string
	Location    *string
	StartTs     *int64
	EndTs       *int64
	AllDay      *bool
}

// DeleteEvent is the delete request for an event.
type DeleteEvent struct {
	ID        int32
	CreatorID int32
}

// CreateEvent creates a new event.
func (s *Store) CreateEvent(ctx context.Context, create *Event) (*Event, error) {
	return s.driver.CreateEvent(ctx, create)
}

// ListEvents lists events with filter, ordered by start time ascending.
func (s *Store) ListEvents(ctx context.Context, find *FindEvent) ([]*Event, error) {
	return s.driver.ListEvents(ctx, find)
}

// GetEvent gets a single event, or nil when none matches.
func (s *Store) GetEvent(ctx context.Context, find *FindEvent) (*Event, error) {
	list, err := s.driver.ListEvents(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateEvent updates an event. Returns ErrEventNotFound when the id does
// not exist or belongs to another user.
func (s *Store) UpdateEvent(ctx context.Context, update *UpdateEvent) error {
	return s.driver.UpdateEvent(ctx, update)
}

// DeleteEvent deletes an event. Returns ErrEventNotFound when the id does
// not exist or belongs to another user.
func (s *Store) DeleteEvent(ctx context.Context, delete *DeleteEvent) error {
	return s.driver.DeleteEvent(ctx, delete)
}

// ParseStartTime parses the event start time to time.Time.
func (e *Event) ParseStartTime() time.Time {
	return time.Unix(e.StartTs, 0)
}

// ParseEndTime parses the event end time to time.Time.
func (e *Event) ParseEndTime() time.Time {
	return time.Unix(e.EndTs, 0)
}
