package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"focusgallery/admin"
	"focusgallery/presenter"
	"focusgallery/session"
)

type recordingHandler struct {
	mu    sync.Mutex
	seen  map[session.Key][]string
	block chan struct{}
	start chan struct{}
}

func (h *recordingHandler) Handle(_ context.Context, ev Event) []presenter.Reply {
	if h.start != nil {
		h.start <- struct{}{}
	}
	if h.block != nil {
		<-h.block
	}
	time.Sleep(time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[ev.Key()] = append(h.seen[ev.Key()], ev.Text)
	return []presenter.Reply{presenter.Text("ok")}
}

type countingSender struct {
	mu    sync.Mutex
	count int
}

func (s *countingSender) Send(context.Context, Event, []presenter.Reply) error {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return nil
}

func TestDispatcherPreservesPerSessionOrder(t *testing.T) {
	handler := &recordingHandler{seen: map[session.Key][]string{}}
	sender := &countingSender{}
	d := NewDispatcher(handler, sender, nil)
	ctx := context.Background()

	const perUser = 20
	for i := 0; i < perUser; i++ {
		for _, user := range []int64{1, 2, 3} {
			ev := Event{Kind: EventText, UserID: user, ChatID: 9, Text: string(rune('a' + i))}
			if !d.Dispatch(ctx, ev) {
				t.Fatalf("event dropped")
			}
		}
	}
	d.Wait()

	for _, user := range []int64{1, 2, 3} {
		got := handler.seen[session.Key{UserID: user, ChatID: 9}]
		if len(got) != perUser {
			t.Fatalf("user %d: expected %d events, got %d", user, perUser, len(got))
		}
		for i, text := range got {
			if text != string(rune('a'+i)) {
				t.Fatalf("user %d: event %d out of order: %v", user, i, got)
			}
		}
	}
	if sender.count != 3*perUser {
		t.Fatalf("expected %d sends, got %d", 3*perUser, sender.count)
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	handler := &recordingHandler{
		seen:  map[session.Key][]string{},
		block: make(chan struct{}),
		start: make(chan struct{}, 4),
	}
	d := NewDispatcher(handler, &countingSender{}, nil)
	d.capacity = 1
	ctx := context.Background()

	ev := func(text string) Event { return Event{Kind: EventText, UserID: 1, ChatID: 1, Text: text} }

	if !d.Dispatch(ctx, ev("first")) {
		t.Fatalf("first event must be accepted")
	}
	<-handler.start // worker is now busy with the first event

	if !d.Dispatch(ctx, ev("second")) {
		t.Fatalf("second event fits in the queue")
	}
	if d.Dispatch(ctx, ev("third")) {
		t.Fatalf("third event must be dropped")
	}

	close(handler.block)
	d.Wait()

	got := handler.seen[session.Key{UserID: 1, ChatID: 1}]
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("unexpected handled events %v", got)
	}
}

type sweepCountingStore struct {
	*session.MemoryStore
	mu      sync.Mutex
	removed int
}

func (s *sweepCountingStore) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.MemoryStore.SweepExpired(ctx)
	s.mu.Lock()
	s.removed += n
	s.mu.Unlock()
	return n, err
}

func (s *sweepCountingStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}

func TestRunSweeperRemovesIdleSessions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	memory := session.NewMemoryStore(session.DefaultIdleTimeout).WithClock(func() time.Time { return now })
	if err := memory.Put(context.Background(), session.New(session.Key{UserID: 1, ChatID: 1}, session.StateSelectingCategory)); err != nil {
		t.Fatalf("put: %v", err)
	}
	now = now.Add(10 * time.Minute)

	store := &sweepCountingStore{MemoryStore: memory}
	engine := NewEngine(newFakeGallery(), store, admin.NewPolicy(), &fakeDownloader{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.RunSweeper(ctx, 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for store.total() == 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("session was not swept")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("sweeper returned %v", err)
	}
}
