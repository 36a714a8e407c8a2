package assistant

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yhzhou/smartcal/plugin/ai"
	"github.com/yhzhou/smartcal/plugin/ai/chinesetime"
	"github.com/yhzhou/smartcal/store"
)

var testLocation = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		panic(err)
	}
	return loc
}()

// Friday 2024-03-15 10:30.
var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, testLocation)

func newTestAssistant(s Store, llm ai.LLMService) *Assistant {
	parser := chinesetime.NewParserWithClock(testLocation, func() time.Time { return fixedNow })
	return New(s, llm, parser)
}

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	mu     sync.Mutex
	nextID int32
	events map[int32]*store.Event
	chats  []*store.ChatMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: map[int32]*store.Event{}}
}

func (f *fakeStore) addEvent(creatorID int32, title string, start time.Time) *store.Event {
	event := &store.Event{
		CreatorID: creatorID,
		Title:     title,
		Location:  LocationUnspecified,
		StartTs:   start.Unix(),
		EndTs:     start.Add(time.Hour).Unix(),
	}
	created, _ := f.CreateEvent(context.Background(), event)
	return created
}

func (f *fakeStore) CreateEvent(_ context.Context, create *store.Event) (*store.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	create.ID = f.nextID
	copied := *create
	f.events[create.ID] = &copied
	return create, nil
}

func (f *fakeStore) ListEvents(_ context.Context, find *store.FindEvent) ([]*store.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := []*store.Event{}
	for _, event := range f.events {
		if find.CreatorID != nil && event.CreatorID != *find.CreatorID {
			continue
		}
		if find.ID != nil && event.ID != *find.ID {
			continue
		}
		if find.StartTsAfter != nil && event.StartTs < *find.StartTsAfter {
			continue
		}
		if find.StartTsBefore != nil && event.StartTs > *find.StartTsBefore {
			continue
		}
		if len(find.Keywords) > 0 && !matchKeywords(event, find.Keywords) {
			continue
		}
		copied := *event
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartTs < list[j].StartTs })
	return list, nil
}

func matchKeywords(event *store.Event, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(event.Title, keyword) ||
			strings.Contains(event.Description, keyword) ||
			strings.Contains(event.Location, keyword) {
			return true
		}
	}
	return false
}

func (f *fakeStore) UpdateEvent(_ context.Context, update *store.UpdateEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	event, ok := f.events[update.ID]
	if !ok || event.CreatorID != update.CreatorID {
		return store.ErrEventNotFound
	}
	if update.Title != nil {
		event.Title = *update.Title
	}
	if update.Description != nil {
		event.Description = *update.Description
	}
	if update.Location != nil {
		event.Location = *update.Location
	}
	if update.StartTs != nil {
		event.StartTs = *update.StartTs
	}
	if update.EndTs != nil {
		event.EndTs = *update.EndTs
	}
	if update.AllDay != nil {
		event.AllDay = *update.AllDay
	}
	return nil
}

func (f *fakeStore) DeleteEvent(_ context.Context, del *store.DeleteEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	event, ok := f.events[del.ID]
	if !ok || event.CreatorID != del.CreatorID {
		return store.ErrEventNotFound
	}
	delete(f.events, del.ID)
	return nil
}

func (f *fakeStore) ListChatMessages(_ context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := []*store.ChatMessage{}
	for _, m := range f.chats {
		if find.CreatorID != nil && m.CreatorID != *find.CreatorID {
			continue
		}
		list = append(list, m)
	}
	return list, nil
}

// fakeLLM replays scripted responses in order, repeating the last one.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     [][]ai.Message
}

func (f *fakeLLM) Chat(_ context.Context, messages []ai.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	response := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return response, nil
}
