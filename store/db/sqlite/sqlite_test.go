package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yhzhou/smartcal/internal/profile"
	"github.com/yhzhou/smartcal/store"
)

func newTestDB(t *testing.T) store.Driver {
	t.Helper()

	driver, err := NewDB(&profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "smartcal_test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(context.Background()))
	t.Cleanup(func() { _ = driver.Close() })
	return driver
}

func createTestEvent(t *testing.T, driver store.Driver, creatorID int32, uid, title string, start time.Time) *store.Event {
	t.Helper()

	event, err := driver.CreateEvent(context.Background(), &store.Event{
		UID:       uid,
		CreatorID: creatorID,
		Title:     title,
		Location:  "未指定地点",
		StartTs:   start.Unix(),
		EndTs:     start.Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	require.NotZero(t, event.ID)
	return event
}

func TestEventCreateAndList(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 16, 14, 0, 0, 0, time.Local)
	created := createTestEvent(t, driver, 1, "uid-1", "项目评审", start)
	require.NotZero(t, created.CreatedTs)

	userID := int32(1)
	list, err := driver.ListEvents(ctx, &store.FindEvent{CreatorID: &userID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "项目评审", list[0].Title)
	// The text column round-trips to the same local timestamp.
	require.Equal(t, start.Unix(), list[0].StartTs)
	require.Equal(t, start.Add(time.Hour).Unix(), list[0].EndTs)
}

func TestEventListOrderAndRange(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 16, 0, 0, 0, 0, time.Local)
	createTestEvent(t, driver, 1, "uid-b", "下午的会", day.Add(14*time.Hour))
	createTestEvent(t, driver, 1, "uid-a", "上午的会", day.Add(9*time.Hour))
	createTestEvent(t, driver, 1, "uid-c", "别天的会", day.AddDate(0, 0, 3))

	userID := int32(1)
	after := day.Unix()
	before := day.Add(24*time.Hour - time.Second).Unix()
	list, err := driver.ListEvents(ctx, &store.FindEvent{
		CreatorID:     &userID,
		StartTsAfter:  &after,
		StartTsBefore: &before,
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Ordered by start time ascending.
	require.Equal(t, "上午的会", list[0].Title)
	require.Equal(t, "下午的会", list[1].Title)
}

func TestEventListKeywords(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 16, 9, 0, 0, 0, time.Local)
	createTestEvent(t, driver, 1, "uid-1", "部门周会", start)
	createTestEvent(t, driver, 1, "uid-2", "体检", start.Add(time.Hour))

	userID := int32(1)
	list, err := driver.ListEvents(ctx, &store.FindEvent{
		CreatorID: &userID,
		Keywords:  []string{"周会"},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "部门周会", list[0].Title)
}

func TestEventListScopedToCreator(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 16, 9, 0, 0, 0, time.Local)
	createTestEvent(t, driver, 1, "uid-1", "我的会", start)
	createTestEvent(t, driver, 2, "uid-2", "别人的会", start)

	userID := int32(1)
	list, err := driver.ListEvents(ctx, &store.FindEvent{CreatorID: &userID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "我的会", list[0].Title)
}

func TestEventUpdatePartial(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 16, 9, 0, 0, 0, time.Local)
	event := createTestEvent(t, driver, 1, "uid-1", "周会", start)

	newStart := start.Add(6 * time.Hour).Unix()
	newEnd := start.Add(7 * time.Hour).Unix()
	err := driver.UpdateEvent(ctx, &store.UpdateEvent{
		ID:        event.ID,
		CreatorID: 1,
		StartTs:   &newStart,
		EndTs:     &newEnd,
	})
	require.NoError(t, err)

	list, err := driver.ListEvents(ctx, &store.FindEvent{ID: &event.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	// Untouched fields keep their values.
	require.Equal(t, "周会", list[0].Title)
	require.Equal(t, "未指定地点", list[0].Location)
	require.Equal(t, newStart, list[0].StartTs)
	require.Equal(t, newEnd, list[0].EndTs)
}

func TestEventUpdateOwnershipMismatch(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 16, 9, 0, 0, 0, time.Local)
	event := createTestEvent(t, driver, 1, "uid-1", "周会", start)

	title := "改名"
	err := driver.UpdateEvent(ctx, &store.UpdateEvent{
		ID:        event.ID,
		CreatorID: 2,
		Title:     &title,
	})
	require.ErrorIs(t, err, store.ErrEventNotFound)
}

func TestEventDelete(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 16, 9, 0, 0, 0, time.Local)
	event := createTestEvent(t, driver, 1, "uid-1", "周会", start)

	// The wrong owner cannot delete it.
	err := driver.DeleteEvent(ctx, &store.DeleteEvent{ID: event.ID, CreatorID: 2})
	require.ErrorIs(t, err, store.ErrEventNotFound)

	require.NoError(t, driver.DeleteEvent(ctx, &store.DeleteEvent{ID: event.ID, CreatorID: 1}))

	err = driver.DeleteEvent(ctx, &store.DeleteEvent{ID: event.ID, CreatorID: 1})
	require.ErrorIs(t, err, store.ErrEventNotFound)
}

func TestUserCreateAndFind(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	user, err := driver.CreateUser(ctx, &store.User{Username: "zhangsan", PasswordHash: "hash"})
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.NotZero(t, user.CreatedTs)

	username := "zhangsan"
	list, err := driver.ListUsers(ctx, &store.FindUser{Username: &username})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, user.ID, list[0].ID)

	// Duplicate usernames are rejected by the unique index.
	_, err = driver.CreateUser(ctx, &store.User{Username: "zhangsan", PasswordHash: "other"})
	require.Error(t, err)
}

func TestChatMessages(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	for _, m := range []*store.ChatMessage{
		{CreatorID: 1, Role: store.ChatMessageRoleUser, Content: "你好"},
		{CreatorID: 1, Role: store.ChatMessageRoleAssistant, Content: "你好！有什么可以帮你？"},
		{CreatorID: 2, Role: store.ChatMessageRoleUser, Content: "别人的消息"},
	} {
		_, err := driver.CreateChatMessage(ctx, m)
		require.NoError(t, err)
	}

	userID := int32(1)
	list, err := driver.ListChatMessages(ctx, &store.FindChatMessage{CreatorID: &userID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Oldest first.
	require.Equal(t, "你好", list[0].Content)
	require.Equal(t, store.ChatMessageRoleAssistant, list[1].Role)

	require.NoError(t, driver.ClearChatMessages(ctx, 1))

	list, err = driver.ListChatMessages(ctx, &store.FindChatMessage{CreatorID: &userID})
	require.NoError(t, err)
	require.Empty(t, list)

	// The other user's history is untouched.
	otherID := int32(2)
	list, err = driver.ListChatMessages(ctx, &store.FindChatMessage{CreatorID: &otherID})
	require.NoError(t, err)
	require.Len(t, list, 1)
}
