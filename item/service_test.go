package item

import (
	"context"
	"errors"
	"testing"
	"time"

	"lostfound/verifier"
)

type fakeItemRepo struct {
	items     map[string]Item
	createErr error
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string]Item)}
}

func (f *fakeItemRepo) Create(ctx context.Context, it Item) (Item, error) {
	if f.createErr != nil {
		return Item{}, f.createErr
	}
	it.CreatedAt = time.Now().UTC()
	it.UpdatedAt = it.CreatedAt
	f.items[it.ID] = it
	return it, nil
}

func (f *fakeItemRepo) GetByID(ctx context.Context, kind Kind, id string) (Item, error) {
	it, ok := f.items[id]
	if !ok || it.Kind != kind {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (f *fakeItemRepo) ListUnmatched(ctx context.Context, kind Kind) ([]Item, error) {
	var out []Item
	for _, it := range f.items {
		if it.Kind == kind && it.Status == kind.InitialStatus() {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) ListByOwner(ctx context.Context, kind Kind, ownerID string) ([]Item, error) {
	var out []Item
	for _, it := range f.items {
		if it.Kind == kind && it.OwnerUserID == ownerID {
			out = append(out, it)
		}
	}
	return out, nil
}

type staticVerifier struct {
	verdict verifier.Verdict
	calls   int
}

func (s *staticVerifier) Verify(ctx context.Context, name, description string) verifier.Verdict {
	s.calls++
	return s.verdict
}

type recordingHook struct {
	created []Item
}

func (r *recordingHook) OnItemCreated(it Item) {
	r.created = append(r.created, it)
}

func TestCreateLost_TriggersHookWithInitialStatus(t *testing.T) {
	repo := newFakeItemRepo()
	check := &staticVerifier{verdict: verifier.VerdictRelevant}
	hook := &recordingHook{}
	svc := NewService(repo, check, nil).WithCreatedHook(hook)

	created, err := svc.CreateLost(context.Background(), CreateParams{
		Name:        "Black Wallet",
		Description: "leather bifold",
		Place:       "library",
		OwnerUserID: "user-1",
	})
	if err != nil {
		t.Fatalf("create lost: %v", err)
	}
	if created.Status != StatusLost {
		t.Fatalf("expected initial status lost, got %s", created.Status)
	}
	if created.Kind != KindLost {
		t.Fatalf("expected kind lost, got %s", created.Kind)
	}
	if check.calls != 1 {
		t.Fatalf("expected one relevance check, got %d", check.calls)
	}
	if len(hook.created) != 1 || hook.created[0].ID != created.ID {
		t.Fatalf("expected created hook to fire for %s, got %+v", created.ID, hook.created)
	}
}

func TestCreateFound_InitialStatusIsFound(t *testing.T) {
	repo := newFakeItemRepo()
	svc := NewService(repo, &staticVerifier{verdict: verifier.VerdictRelevant}, nil)

	created, err := svc.CreateFound(context.Background(), CreateParams{
		Name:        "Wallet",
		Description: "black leather bifold found near gate",
		Place:       "gate 3",
		OwnerUserID: "user-2",
	})
	if err != nil {
		t.Fatalf("create found: %v", err)
	}
	if created.Status != StatusFound {
		t.Fatalf("expected initial status found, got %s", created.Status)
	}
}

func TestCreate_IrrelevantDescriptionRejected(t *testing.T) {
	repo := newFakeItemRepo()
	hook := &recordingHook{}
	svc := NewService(repo, &staticVerifier{verdict: verifier.VerdictIrrelevant}, nil).WithCreatedHook(hook)

	_, err := svc.CreateLost(context.Background(), CreateParams{
		Name:        "Umbrella",
		Description: "my favorite soup recipe",
		OwnerUserID: "user-1",
	})
	if !errors.Is(err, ErrIrrelevantDescription) {
		t.Fatalf("expected ErrIrrelevantDescription, got %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatal("rejected submission must not be persisted")
	}
	if len(hook.created) != 0 {
		t.Fatal("rejected submission must not trigger matching")
	}
}

func TestCreate_VerifierUnavailableDoesNotBlockIntake(t *testing.T) {
	repo := newFakeItemRepo()
	hook := &recordingHook{}
	svc := NewService(repo, &staticVerifier{verdict: verifier.VerdictUnavailable}, nil).WithCreatedHook(hook)

	created, err := svc.CreateLost(context.Background(), CreateParams{
		Name:        "Keys",
		Description: "ring of three keys",
		OwnerUserID: "user-1",
	})
	if err != nil {
		t.Fatalf("verifier unavailability must not reject intake: %v", err)
	}
	if len(hook.created) != 1 || hook.created[0].ID != created.ID {
		t.Fatal("expected created hook to fire despite verifier unavailability")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newFakeItemRepo(), nil, nil)

	if _, err := svc.CreateLost(context.Background(), CreateParams{
		Name: "Wallet", Description: "x",
	}); err == nil {
		t.Fatal("expected error for missing owner")
	}
	if _, err := svc.CreateLost(context.Background(), CreateParams{
		OwnerUserID: "user-1",
	}); err == nil {
		t.Fatal("expected error for missing name and description")
	}
}
