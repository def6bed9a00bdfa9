package match

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"lostfound/item"
	"lostfound/notification"
	"lostfound/similarity"
)

type fakeItemSource struct {
	items map[string]item.Item
}

func newFakeItemSource(items ...item.Item) *fakeItemSource {
	src := &fakeItemSource{items: make(map[string]item.Item)}
	for _, it := range items {
		src.items[it.ID] = it
	}
	return src
}

func (f *fakeItemSource) GetByID(ctx context.Context, kind item.Kind, id string) (item.Item, error) {
	it, ok := f.items[id]
	if !ok || it.Kind != kind {
		return item.Item{}, item.ErrItemNotFound
	}
	return it, nil
}

func (f *fakeItemSource) ListUnmatched(ctx context.Context, kind item.Kind) ([]item.Item, error) {
	var out []item.Item
	for _, it := range f.items {
		if it.Kind == kind && it.Status == kind.InitialStatus() {
			out = append(out, it)
		}
	}
	return out, nil
}

type createdPair struct {
	lostID  string
	foundID string
	score   int
}

type fakeCreator struct {
	mu      sync.Mutex
	created []createdPair
	errFor  map[string]error
	seq     int
}

func (f *fakeCreator) CreateCandidate(ctx context.Context, lostItemID, foundItemID string, score int) (Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errFor[lostItemID+"/"+foundItemID]; ok {
		return Candidate{}, err
	}
	f.created = append(f.created, createdPair{lostID: lostItemID, foundID: foundItemID, score: score})
	f.seq++
	return Candidate{
		ID:              fmt.Sprintf("cand-%d", f.seq),
		LostItemID:      lostItemID,
		FoundItemID:     foundItemID,
		SimilarityScore: score,
		ReviewStatus:    ReviewUnconfirmed,
	}, nil
}

func (f *fakeCreator) pairs() []createdPair {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]createdPair, len(f.created))
	copy(out, f.created)
	return out
}

// fakeScorer looks scores up by "lostName/foundName".
type fakeScorer struct {
	scores map[string]float64
}

func (f *fakeScorer) Score(ctx context.Context, a, b similarity.Subject) (float64, error) {
	if s, ok := f.scores[a.Name+"/"+b.Name]; ok {
		return s, nil
	}
	return 0, nil
}

type safeNotifier struct {
	mu    sync.Mutex
	users []string
}

func (f *safeNotifier) Notify(ctx context.Context, userID, title, body string, candidateID *string) (notification.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return notification.Notification{ID: "n", UserID: userID}, nil
}

func (f *safeNotifier) notified() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.users))
	copy(out, f.users)
	return out
}

func lostFixture(id, owner, name string) item.Item {
	return item.Item{ID: id, Kind: item.KindLost, Name: name, Description: name, OwnerUserID: owner, Status: item.StatusLost}
}

func foundFixture(id, owner, name string) item.Item {
	return item.Item{ID: id, Kind: item.KindFound, Name: name, Description: name, OwnerUserID: owner, Status: item.StatusFound}
}

func TestScan_CreatesCandidateAboveThreshold(t *testing.T) {
	source := newFakeItemSource(
		lostFixture("lost-1", "alice", "black wallet"),
		foundFixture("found-1", "bob", "wallet"),
	)
	creator := &fakeCreator{}
	scorer := &fakeScorer{scores: map[string]float64{"black wallet/wallet": 0.82}}
	notifier := &safeNotifier{}
	o := NewOrchestrator(source, creator, scorer, notifier, slog.New(slog.DiscardHandler))

	o.scan(context.Background(), scanTask{kind: item.KindLost, itemID: "lost-1"})

	pairs := creator.pairs()
	if len(pairs) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(pairs))
	}
	if pairs[0].lostID != "lost-1" || pairs[0].foundID != "found-1" {
		t.Errorf("candidate pair = %+v, want lost-1/found-1", pairs[0])
	}
	if pairs[0].score != 82 {
		t.Errorf("similarity score = %d, want 82", pairs[0].score)
	}
	users := notifier.notified()
	if len(users) != 2 {
		t.Fatalf("expected both owners notified, got %v", users)
	}
}

func TestScan_ThresholdIsExclusive(t *testing.T) {
	source := newFakeItemSource(
		lostFixture("lost-1", "alice", "umbrella"),
		foundFixture("found-1", "bob", "keys"),
	)
	creator := &fakeCreator{}
	scorer := &fakeScorer{scores: map[string]float64{"umbrella/keys": MatchThreshold}}
	o := NewOrchestrator(source, creator, scorer, nil, slog.New(slog.DiscardHandler))

	o.scan(context.Background(), scanTask{kind: item.KindLost, itemID: "lost-1"})

	if len(creator.pairs()) != 0 {
		t.Fatalf("expected no candidate at exactly the threshold, got %d", len(creator.pairs()))
	}
}

func TestScan_FoundItemOrientsPair(t *testing.T) {
	source := newFakeItemSource(
		lostFixture("lost-1", "alice", "black wallet"),
		foundFixture("found-1", "bob", "wallet"),
	)
	creator := &fakeCreator{}
	scorer := &fakeScorer{scores: map[string]float64{"black wallet/wallet": 0.75}}
	o := NewOrchestrator(source, creator, scorer, nil, slog.New(slog.DiscardHandler))

	// Scanning from the found side still records (lost, found) in that order.
	o.scan(context.Background(), scanTask{kind: item.KindFound, itemID: "found-1"})

	pairs := creator.pairs()
	if len(pairs) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(pairs))
	}
	if pairs[0].lostID != "lost-1" || pairs[0].foundID != "found-1" {
		t.Errorf("candidate pair = %+v, want lost-1/found-1", pairs[0])
	}
}

func TestScan_CreatesCandidatePerQualifyingCounterpart(t *testing.T) {
	source := newFakeItemSource(
		lostFixture("lost-1", "alice", "black wallet"),
		foundFixture("found-1", "bob", "wallet"),
		foundFixture("found-2", "carol", "leather wallet"),
		foundFixture("found-3", "dave", "umbrella"),
	)
	creator := &fakeCreator{}
	scorer := &fakeScorer{scores: map[string]float64{
		"black wallet/wallet":         0.9,
		"black wallet/leather wallet": 0.7,
		"black wallet/umbrella":       0.1,
	}}
	notifier := &safeNotifier{}
	o := NewOrchestrator(source, creator, scorer, notifier, slog.New(slog.DiscardHandler))

	o.scan(context.Background(), scanTask{kind: item.KindLost, itemID: "lost-1"})

	pairs := creator.pairs()
	if len(pairs) != 2 {
		t.Fatalf("expected a candidate per counterpart above threshold, got %d", len(pairs))
	}
	got := map[string]bool{}
	for _, p := range pairs {
		if p.lostID != "lost-1" {
			t.Errorf("candidate lost side = %s, want lost-1", p.lostID)
		}
		got[p.foundID] = true
	}
	if !got["found-1"] || !got["found-2"] {
		t.Errorf("candidate found sides = %v, want found-1 and found-2", got)
	}
	if users := notifier.notified(); len(users) != 4 {
		t.Errorf("expected both owners notified per candidate, got %v", users)
	}
}

func TestScan_SkipsDuplicateAndContinues(t *testing.T) {
	source := newFakeItemSource(
		lostFixture("lost-1", "alice", "black wallet"),
		foundFixture("found-1", "bob", "wallet"),
		foundFixture("found-2", "carol", "leather wallet"),
	)
	creator := &fakeCreator{errFor: map[string]error{
		"lost-1/found-1": ErrCandidateDuplicate,
	}}
	scorer := &fakeScorer{scores: map[string]float64{
		"black wallet/wallet":         0.9,
		"black wallet/leather wallet": 0.8,
	}}
	notifier := &safeNotifier{}
	o := NewOrchestrator(source, creator, scorer, notifier, slog.New(slog.DiscardHandler))

	o.scan(context.Background(), scanTask{kind: item.KindLost, itemID: "lost-1"})

	pairs := creator.pairs()
	if len(pairs) != 1 {
		t.Fatalf("expected scan to continue past duplicate, got %d candidates", len(pairs))
	}
	if pairs[0].foundID != "found-2" {
		t.Errorf("surviving pair = %+v, want lost-1/found-2", pairs[0])
	}
}

func TestScan_SkipsUnavailableItem(t *testing.T) {
	source := newFakeItemSource(
		lostFixture("lost-1", "alice", "black wallet"),
		foundFixture("found-1", "bob", "wallet"),
	)
	creator := &fakeCreator{errFor: map[string]error{
		"lost-1/found-1": ErrItemUnavailable,
	}}
	scorer := &fakeScorer{scores: map[string]float64{"black wallet/wallet": 0.9}}
	notifier := &safeNotifier{}
	o := NewOrchestrator(source, creator, scorer, notifier, slog.New(slog.DiscardHandler))

	o.scan(context.Background(), scanTask{kind: item.KindLost, itemID: "lost-1"})

	if len(creator.pairs()) != 0 {
		t.Fatal("expected no candidate for unavailable item")
	}
	if len(notifier.notified()) != 0 {
		t.Error("expected no notifications without a candidate")
	}
}

func TestOnItemCreated_FullQueueDropsScan(t *testing.T) {
	source := newFakeItemSource(
		lostFixture("lost-1", "alice", "black wallet"),
		lostFixture("lost-2", "carol", "brown wallet"),
		foundFixture("found-1", "bob", "wallet"),
	)
	creator := &fakeCreator{}
	scorer := &fakeScorer{scores: map[string]float64{
		"black wallet/wallet": 0.9,
		"brown wallet/wallet": 0.9,
	}}
	o := NewOrchestrator(source, creator, scorer, nil, slog.New(slog.DiscardHandler)).
		WithWorkers(1).
		WithQueueSize(1)

	// Workers have not started, so the second handoff finds the queue full
	// and is dropped instead of spawning a waiter.
	o.OnItemCreated(source.items["lost-1"])
	o.OnItemCreated(source.items["lost-2"])
	if n := len(o.queue); n != 1 {
		t.Fatalf("queue depth = %d, want 1", n)
	}

	o.Start()
	deadline := time.After(5 * time.Second)
	for {
		if len(creator.pairs()) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for queued scan")
		case <-time.After(10 * time.Millisecond):
		}
	}
	o.Stop()

	pairs := creator.pairs()
	if len(pairs) != 1 || pairs[0].lostID != "lost-1" {
		t.Fatalf("expected only the queued scan to run, got %+v", pairs)
	}
}

func TestOrchestrator_AsyncScan(t *testing.T) {
	source := newFakeItemSource(
		lostFixture("lost-1", "alice", "black wallet"),
		foundFixture("found-1", "bob", "wallet"),
	)
	creator := &fakeCreator{}
	scorer := &fakeScorer{scores: map[string]float64{"black wallet/wallet": 0.82}}
	o := NewOrchestrator(source, creator, scorer, nil, slog.New(slog.DiscardHandler)).WithWorkers(2)
	o.Start()
	defer o.Stop()

	o.OnItemCreated(source.items["lost-1"])

	deadline := time.After(5 * time.Second)
	for {
		if len(creator.pairs()) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for async scan to create candidate")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
