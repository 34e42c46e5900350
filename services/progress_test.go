package services

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/cleo-edu/cleo_api/dto"
	"github.com/cleo-edu/cleo_api/model"
	"github.com/cleo-edu/cleo_api/services/repositories"
)

type fakeProgressStore struct {
	mu      sync.Mutex
	rows    map[string]*model.LessonProgress
	upserts []model.LessonProgress
	failAll bool
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{rows: make(map[string]*model.LessonProgress)}
}

func (f *fakeProgressStore) GetProgress(conversationID string) (*model.LessonProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		return nil, errors.New("store down")
	}
	row, ok := f.rows[conversationID]
	if !ok {
		return nil, errors.New("record not found")
	}
	clone := *row
	return &clone, nil
}

func (f *fakeProgressStore) UpsertProgress(progress *model.LessonProgress) (*model.LessonProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		return nil, errors.New("store down")
	}

	if existing, ok := f.rows[progress.ConversationID]; ok {
		existing.LessonID = progress.LessonID
		existing.ActiveStep = progress.ActiveStep
		existing.VisibleContentIDs = progress.VisibleContentIDs
		existing.CompletedSteps = progress.CompletedSteps
		existing.CompletionPercentage = progress.CompletionPercentage
		f.upserts = append(f.upserts, *existing)
		clone := *existing
		return &clone, nil
	}

	clone := *progress
	f.rows[progress.ConversationID] = &clone
	f.upserts = append(f.upserts, clone)
	out := clone
	return &out, nil
}

func (f *fakeProgressStore) MarkPaused(conversationID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if row, ok := f.rows[conversationID]; ok {
		row.PausedAt = &at
	}
	return nil
}

func (f *fakeProgressStore) MarkCompleted(conversationID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if row, ok := f.rows[conversationID]; ok {
		row.CompletedAt = &at
		row.CompletionPercentage = 100
		row.PausedAt = nil
	}
	return nil
}

func (f *fakeProgressStore) ClearPause(conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if row, ok := f.rows[conversationID]; ok {
		row.PausedAt = nil
	}
	return nil
}

func (f *fakeProgressStore) DeleteProgress(conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.rows, conversationID)
	return nil
}

func (f *fakeProgressStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func (f *fakeProgressStore) lastUpsert() *model.LessonProgress {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.upserts) == 0 {
		return nil
	}
	last := f.upserts[len(f.upserts)-1]
	return &last
}

func newTestProgressService(store ProgressStore, window time.Duration) *ProgressService {
	return &ProgressService{
		progressRepo: store,
		window:       window,
		pending:      make(map[string]*saveTimer),
		mirror:       make(map[string]*model.LessonProgress),
	}
}

func TestDebouncedSaveCoalesces(t *testing.T) {
	store := newFakeProgressStore()
	svc := newTestProgressService(store, 30*time.Millisecond)

	svc.DebouncedSave(dto.SaveProgressRequest{
		ConversationID: "conv-1",
		ActiveStep:     0,
		CompletedSteps: []string{},
	})
	svc.DebouncedSave(dto.SaveProgressRequest{
		ConversationID: "conv-1",
		ActiveStep:     2,
		CompletedSteps: []string{"s1", "s2"},
	})

	time.Sleep(100 * time.Millisecond)

	if got := store.upsertCount(); got != 1 {
		t.Fatalf("expected exactly 1 persisted write, got %d", got)
	}

	last := store.lastUpsert()
	if last.ActiveStep != 2 {
		t.Errorf("expected last payload to win, got active step %d", last.ActiveStep)
	}
	got := repositories.UnmarshalIDs(last.CompletedSteps)
	if !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Errorf("expected last payload's steps, got %v", got)
	}
}

func TestDebouncedSaveIndependentConversations(t *testing.T) {
	store := newFakeProgressStore()
	svc := newTestProgressService(store, 20*time.Millisecond)

	svc.DebouncedSave(dto.SaveProgressRequest{ConversationID: "conv-1", ActiveStep: 1})
	svc.DebouncedSave(dto.SaveProgressRequest{ConversationID: "conv-2", ActiveStep: 3})

	time.Sleep(80 * time.Millisecond)

	if got := store.upsertCount(); got != 2 {
		t.Fatalf("expected one write per conversation, got %d", got)
	}
}

func TestCancelPendingDropsWrite(t *testing.T) {
	store := newFakeProgressStore()
	svc := newTestProgressService(store, 30*time.Millisecond)

	svc.DebouncedSave(dto.SaveProgressRequest{ConversationID: "conv-1", ActiveStep: 1})
	svc.CancelPending("conv-1")

	time.Sleep(80 * time.Millisecond)

	if got := store.upsertCount(); got != 0 {
		t.Fatalf("expected cancelled save to never land, got %d writes", got)
	}
}

func TestSaveBlankConversationNoop(t *testing.T) {
	store := newFakeProgressStore()
	svc := newTestProgressService(store, 10*time.Millisecond)

	if resp := svc.Save(dto.SaveProgressRequest{}); resp != nil {
		t.Errorf("expected nil response for blank conversation, got %+v", resp)
	}
	svc.DebouncedSave(dto.SaveProgressRequest{})
	time.Sleep(40 * time.Millisecond)

	if got := store.upsertCount(); got != 0 {
		t.Errorf("expected no writes, got %d", got)
	}
}

func TestLoadFailureReadsAsFreshStart(t *testing.T) {
	store := newFakeProgressStore()
	store.failAll = true
	svc := newTestProgressService(store, 10*time.Millisecond)

	if resp := svc.Load("conv-1"); resp != nil {
		t.Errorf("expected nil on store failure, got %+v", resp)
	}
	if resp := svc.Load(""); resp != nil {
		t.Errorf("expected nil for blank conversation id, got %+v", resp)
	}
}

func TestSaveFailureKeepsOptimisticState(t *testing.T) {
	store := newFakeProgressStore()
	store.failAll = true
	svc := newTestProgressService(store, 10*time.Millisecond)

	resp := svc.Save(dto.SaveProgressRequest{
		ConversationID: "conv-1",
		ActiveStep:     3,
	})
	if resp == nil || resp.ActiveStep != 3 {
		t.Fatalf("expected optimistic response, got %+v", resp)
	}

	mirror := svc.Mirror("conv-1")
	if mirror == nil || mirror.ActiveStep != 3 {
		t.Errorf("expected optimistic mirror, got %+v", mirror)
	}
}

func TestPauseResumeScenario(t *testing.T) {
	store := newFakeProgressStore()
	svc := newTestProgressService(store, 10*time.Millisecond)

	svc.Save(dto.SaveProgressRequest{
		ConversationID:       "conv-1",
		CompletedSteps:       []string{"s1"},
		CompletionPercentage: 50,
	})

	if err := svc.MarkPaused("conv-1"); err != nil {
		t.Fatalf("MarkPaused: %v", err)
	}
	resp, err := svc.Refresh("conv-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if resp.PausedAt == nil {
		t.Fatal("expected paused_at set")
	}

	if err := svc.ClearPause("conv-1"); err != nil {
		t.Fatalf("ClearPause: %v", err)
	}
	resp, err = svc.Refresh("conv-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if resp.PausedAt != nil {
		t.Error("expected paused_at cleared")
	}
	if resp.CompletionPercentage != 50 {
		t.Errorf("resume must not touch completion percentage, got %v", resp.CompletionPercentage)
	}
	if !reflect.DeepEqual(resp.CompletedSteps, []string{"s1"}) {
		t.Errorf("resume must not touch completed steps, got %v", resp.CompletedSteps)
	}
}

func TestMarkCompletedScenario(t *testing.T) {
	store := newFakeProgressStore()
	svc := newTestProgressService(store, 10*time.Millisecond)

	svc.Save(dto.SaveProgressRequest{
		ConversationID:       "conv-1",
		CompletionPercentage: 40,
	})
	if err := svc.MarkPaused("conv-1"); err != nil {
		t.Fatalf("MarkPaused: %v", err)
	}

	if err := svc.MarkCompleted("conv-1"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	resp, err := svc.Refresh("conv-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if resp.CompletionPercentage != 100 {
		t.Errorf("expected 100 percent, got %v", resp.CompletionPercentage)
	}
	if resp.PausedAt != nil {
		t.Error("expected paused_at cleared regardless of prior pause")
	}
	if resp.CompletedAt == nil {
		t.Error("expected completed_at set")
	}
}

func TestRefreshDiscardsOptimisticState(t *testing.T) {
	store := newFakeProgressStore()
	svc := newTestProgressService(store, 10*time.Millisecond)

	svc.Save(dto.SaveProgressRequest{ConversationID: "conv-1", ActiveStep: 1})

	// Optimistic-only state: store starts failing, local save still applies.
	store.failAll = true
	svc.Save(dto.SaveProgressRequest{ConversationID: "conv-1", ActiveStep: 5})
	store.failAll = false

	resp, err := svc.Refresh("conv-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if resp.ActiveStep != 1 {
		t.Errorf("expected refresh to restore persisted state, got step %d", resp.ActiveStep)
	}
}
