package services

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/cleo-edu/cleo_api/dto"
	"github.com/cleo-edu/cleo_api/model"
	"github.com/cleo-edu/cleo_api/services/repositories"
	"github.com/cleo-edu/cleo_api/shared"
)

type fakeCatalog struct {
	mu     sync.Mutex
	lesson *model.LessonData
}

func (f *fakeCatalog) GetLessonData(lessonID string) (*model.LessonData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if lessonID != f.lesson.Lesson.ID {
		return nil, shared.ErrNotFound("lesson not found")
	}
	clone := *f.lesson
	return &clone, nil
}

func (f *fakeCatalog) UpsertBlock(lessonID string, req dto.CreateContentBlockRequest) (*model.ContentBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	block := model.ContentBlock{
		ID:       req.ID,
		LessonID: lessonID,
		StepID:   req.StepID,
		Type:     req.Type,
		Data:     req.Data,
	}
	if block.ID == "" {
		block.ID = "generated-id"
	}

	for i := range f.lesson.Content {
		if f.lesson.Content[i].ID == block.ID {
			f.lesson.Content[i] = block
			return &block, nil
		}
	}
	f.lesson.Content = append(f.lesson.Content, block)
	return &block, nil
}

type fakeProgress struct {
	mu        sync.Mutex
	rows      map[string]*dto.ProgressResponse
	saves     []dto.SaveProgressRequest
	debounced []dto.SaveProgressRequest
	cancelled []string
	paused    map[string]bool
	completed map[string]bool
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{
		rows:      make(map[string]*dto.ProgressResponse),
		paused:    make(map[string]bool),
		completed: make(map[string]bool),
	}
}

func (f *fakeProgress) Load(conversationID string) *dto.ProgressResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[conversationID]
}

func (f *fakeProgress) Save(req dto.SaveProgressRequest) *dto.ProgressResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, req)
	return nil
}

func (f *fakeProgress) DebouncedSave(req dto.SaveProgressRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debounced = append(f.debounced, req)
}

func (f *fakeProgress) CancelPending(conversationID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, conversationID)
}

func (f *fakeProgress) MarkPaused(conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused[conversationID] = true
	return nil
}

func (f *fakeProgress) MarkCompleted(conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[conversationID] = true
	return nil
}

func (f *fakeProgress) ClearPause(conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused[conversationID] = false
	return nil
}

func (f *fakeProgress) Refresh(conversationID string) (*dto.ProgressResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if row, ok := f.rows[conversationID]; ok {
		return row, nil
	}
	return nil, shared.ErrNotFound("")
}

func (f *fakeProgress) Clear(conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, conversationID)
	return nil
}

func (f *fakeProgress) lastDebounced() *dto.SaveProgressRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.debounced) == 0 {
		return nil
	}
	last := f.debounced[len(f.debounced)-1]
	return &last
}

func nowPtr() *time.Time {
	now := time.Now()
	return &now
}

func syncTestLesson() *model.LessonData {
	return &model.LessonData{
		Lesson: model.Lesson{ID: "l1", Topic: "Fractions", YearGroup: "Year 5"},
		Steps: []model.LessonStep{
			{ID: "s1", LessonID: "l1", Order: 1, Title: "Intro"},
			{ID: "s2", LessonID: "l1", Order: 2, Title: "Practice"},
		},
		Content: []model.ContentBlock{
			{ID: "c1", LessonID: "l1", StepID: "s1", Type: "text"},
			{ID: "c2", LessonID: "l1", StepID: "s2", Type: "question"},
		},
	}
}

func newTestSyncService(catalog lessonCatalog, progress progressMirror) *SyncService {
	return &SyncService{
		catalog:  catalog,
		progress: progress,
		sessions: make(map[string]*liveSession),
	}
}

func TestSyncStartSessionFresh(t *testing.T) {
	svc := newTestSyncService(&fakeCatalog{lesson: syncTestLesson()}, newFakeProgress())

	state, err := svc.StartSession("conv-1", "l1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if state.ActiveStep != 0 || len(state.VisibleContent) != 0 || len(state.CompletedSteps) != 0 {
		t.Errorf("expected empty initial state, got %+v", state)
	}
}

func TestSyncStartSessionHydratesAndResumes(t *testing.T) {
	progress := newFakeProgress()
	paused := nowPtr()
	progress.rows["conv-1"] = &dto.ProgressResponse{
		ConversationID:    "conv-1",
		LessonID:          "l1",
		ActiveStep:        1,
		VisibleContentIDs: []string{"c1"},
		CompletedSteps:    []string{"s1"},
		PausedAt:          paused,
	}
	svc := newTestSyncService(&fakeCatalog{lesson: syncTestLesson()}, progress)

	state, err := svc.StartSession("conv-1", "l1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if state.ActiveStep != 1 {
		t.Errorf("expected hydrated active step 1, got %d", state.ActiveStep)
	}
	if !reflect.DeepEqual(state.VisibleContent, []string{"c1"}) {
		t.Errorf("expected hydrated visible content, got %v", state.VisibleContent)
	}
	if progress.paused["conv-1"] {
		t.Error("expected pause cleared on resume")
	}
}

func TestSyncHandleRawEvent(t *testing.T) {
	progress := newFakeProgress()
	svc := newTestSyncService(&fakeCatalog{lesson: syncTestLesson()}, progress)

	if _, err := svc.StartSession("conv-1", "l1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	state, err := svc.HandleRawEvent("conv-1", []byte(`{"type":"move_to_step","step_id":"s2"}`))
	if err != nil {
		t.Fatalf("HandleRawEvent: %v", err)
	}
	if state.ActiveStep != 1 {
		t.Errorf("expected active step 1, got %d", state.ActiveStep)
	}
	if !reflect.DeepEqual(state.VisibleContent, []string{"c2"}) {
		t.Errorf("expected [c2], got %v", state.VisibleContent)
	}

	saved := progress.lastDebounced()
	if saved == nil {
		t.Fatal("expected a debounced save from the observer")
	}
	if saved.ActiveStep != 1 || saved.CompletionPercentage != 0 {
		t.Errorf("unexpected save payload %+v", saved)
	}
}

func TestSyncHandleRawEventBadEnvelope(t *testing.T) {
	svc := newTestSyncService(&fakeCatalog{lesson: syncTestLesson()}, newFakeProgress())
	if _, err := svc.StartSession("conv-1", "l1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	_, err := svc.HandleRawEvent("conv-1", []byte(`{"type":"rewind_lesson"}`))
	appErr, ok := shared.GetAppError(err)
	if !ok || appErr.StatusCode != 400 {
		t.Errorf("expected 400 app error, got %v", err)
	}
}

func TestSyncEventWithoutSession(t *testing.T) {
	svc := newTestSyncService(&fakeCatalog{lesson: syncTestLesson()}, newFakeProgress())

	_, err := svc.HandleRawEvent("conv-missing", []byte(`{"type":"show_content","content_id":"c1"}`))
	appErr, ok := shared.GetAppError(err)
	if !ok || appErr.StatusCode != 404 {
		t.Errorf("expected 404 app error, got %v", err)
	}
}

func TestSyncSessionRestoredFromProgress(t *testing.T) {
	progress := newFakeProgress()
	progress.rows["conv-1"] = &dto.ProgressResponse{
		ConversationID: "conv-1",
		LessonID:       "l1",
		ActiveStep:     1,
		CompletedSteps: []string{"s1"},
	}
	svc := newTestSyncService(&fakeCatalog{lesson: syncTestLesson()}, progress)

	// No StartSession call: the service restores from the persisted row.
	state, err := svc.HandleRawEvent("conv-1", []byte(`{"type":"complete_step","step_id":"s2"}`))
	if err != nil {
		t.Fatalf("HandleRawEvent: %v", err)
	}
	if !reflect.DeepEqual(state.CompletedSteps, []string{"s1", "s2"}) {
		t.Errorf("expected restored + new completed steps, got %v", state.CompletedSteps)
	}
}

func TestSyncUpsertContentAutoShow(t *testing.T) {
	catalog := &fakeCatalog{lesson: syncTestLesson()}
	svc := newTestSyncService(catalog, newFakeProgress())

	if _, err := svc.StartSession("conv-1", "l1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	raw := `{"type":"upsert_content","auto_show":true,"block":{"id":"c3","step_id":"s1","type":"definition","data":{"term":"half","definition":"one of two equal parts"}}}`
	state, err := svc.HandleRawEvent("conv-1", []byte(raw))
	if err != nil {
		t.Fatalf("HandleRawEvent: %v", err)
	}
	if !reflect.DeepEqual(state.VisibleContent, []string{"c3"}) {
		t.Errorf("expected upserted block visible, got %v", state.VisibleContent)
	}

	// The catalog view inside the session must now include the block.
	state, err = svc.HandleRawEvent("conv-1", []byte(`{"type":"move_to_step","step_id":"s1"}`))
	if err != nil {
		t.Fatalf("HandleRawEvent: %v", err)
	}
	if !reflect.DeepEqual(state.VisibleContent, []string{"c3", "c1"}) {
		t.Errorf("expected [c3 c1] after move, got %v", state.VisibleContent)
	}
}

func TestSyncCompleteIsTerminal(t *testing.T) {
	progress := newFakeProgress()
	svc := newTestSyncService(&fakeCatalog{lesson: syncTestLesson()}, progress)

	if _, err := svc.StartSession("conv-1", "l1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	state, err := svc.Complete("conv-1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(state.CompletedSteps) != 2 {
		t.Errorf("expected all steps completed, got %v", state.CompletedSteps)
	}
	if !progress.completed["conv-1"] {
		t.Error("expected terminal progress write")
	}
	if len(progress.cancelled) == 0 {
		t.Error("expected pending debounced save cancelled before terminal write")
	}

	if len(progress.saves) != 1 {
		t.Fatalf("expected one synchronous snapshot save, got %d", len(progress.saves))
	}
	snap := progress.saves[0]
	if len(snap.CompletedSteps) != 2 || snap.CompletionPercentage != 100 {
		t.Errorf("unexpected snapshot payload %+v", snap)
	}
}

func TestSyncCompleteInsideFirstDebounceWindow(t *testing.T) {
	store := newFakeProgressStore()
	progress := newTestProgressService(store, 30*time.Millisecond)
	svc := newTestSyncService(&fakeCatalog{lesson: syncTestLesson()}, progress)

	if _, err := svc.StartSession("conv-1", "l1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := svc.HandleRawEvent("conv-1", []byte(`{"type":"complete_step","step_id":"s1"}`)); err != nil {
		t.Fatalf("HandleRawEvent: %v", err)
	}

	// Finish before the debounced write from the event could land.
	if _, err := svc.Complete("conv-1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	row, err := store.GetProgress("conv-1")
	if err != nil {
		t.Fatalf("expected persisted row after completion, got %v", err)
	}
	if row.CompletedAt == nil {
		t.Error("expected completed_at set")
	}
	if row.CompletionPercentage != 100 {
		t.Errorf("expected 100 percent, got %v", row.CompletionPercentage)
	}
	steps := repositories.UnmarshalIDs(row.CompletedSteps)
	if !reflect.DeepEqual(steps, []string{"s1", "s2"}) {
		t.Errorf("expected full completed set persisted, got %v", steps)
	}
	if got := store.upsertCount(); got != 1 {
		t.Errorf("expected the cancelled debounce to never land, got %d writes", got)
	}
}

func TestSyncEndSessionCancelsPending(t *testing.T) {
	progress := newFakeProgress()
	svc := newTestSyncService(&fakeCatalog{lesson: syncTestLesson()}, progress)

	if _, err := svc.StartSession("conv-1", "l1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	svc.EndSession("conv-1")

	if len(progress.cancelled) != 1 || progress.cancelled[0] != "conv-1" {
		t.Errorf("expected cancel for conv-1, got %v", progress.cancelled)
	}
	if _, err := svc.GetState("conv-1"); err == nil {
		t.Error("expected session gone after end")
	}
}

func TestSyncCompletionPercentage(t *testing.T) {
	progress := newFakeProgress()
	svc := newTestSyncService(&fakeCatalog{lesson: syncTestLesson()}, progress)

	if _, err := svc.StartSession("conv-1", "l1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := svc.HandleRawEvent("conv-1", []byte(`{"type":"complete_step","step_id":"s1"}`)); err != nil {
		t.Fatalf("HandleRawEvent: %v", err)
	}

	saved := progress.lastDebounced()
	if saved == nil {
		t.Fatal("expected debounced save")
	}
	if saved.CompletionPercentage != 50 {
		t.Errorf("expected 50 percent after 1 of 2 steps, got %v", saved.CompletionPercentage)
	}
}

func TestSyncCompletionPercentageIgnoresUnknownSteps(t *testing.T) {
	progress := newFakeProgress()
	svc := newTestSyncService(&fakeCatalog{lesson: syncTestLesson()}, progress)

	if _, err := svc.StartSession("conv-1", "l1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	for _, id := range []string{"s1", "ghost-1", "ghost-2", "ghost-3"} {
		raw := `{"type":"complete_step","step_id":"` + id + `"}`
		if _, err := svc.HandleRawEvent("conv-1", []byte(raw)); err != nil {
			t.Fatalf("HandleRawEvent(%s): %v", id, err)
		}
	}

	saved := progress.lastDebounced()
	if saved == nil {
		t.Fatal("expected debounced save")
	}
	if saved.CompletionPercentage != 50 {
		t.Errorf("steps outside the lesson must not count, got %v", saved.CompletionPercentage)
	}
}
