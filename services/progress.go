// services/progress.go
package services

import (
	"os"
	"strconv"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/cleo-edu/cleo_api/dto"
	"github.com/cleo-edu/cleo_api/model"
	"github.com/cleo-edu/cleo_api/services/repositories"
	"github.com/cleo-edu/cleo_api/shared"
)

// ProgressStore is the row-oriented durable store for progress snapshots,
// addressed by conversation id.
type ProgressStore interface {
	GetProgress(conversationID string) (*model.LessonProgress, error)
	UpsertProgress(progress *model.LessonProgress) (*model.LessonProgress, error)
	MarkPaused(conversationID string, at time.Time) error
	MarkCompleted(conversationID string, at time.Time) error
	ClearPause(conversationID string) error
	DeleteProgress(conversationID string) error
}

// ProgressService mirrors sync state to durable storage without blocking
// event application: snapshot saves are debounced and coalesced per
// conversation, pause/complete transitions always write immediately.
type ProgressService struct {
	appContext.DefaultService

	progressRepo ProgressStore

	window time.Duration

	mu      sync.Mutex
	pending map[string]*saveTimer

	mirrorMu sync.RWMutex
	mirror   map[string]*model.LessonProgress
}

const PROGRESS_SVC = "progress_svc"

const defaultDebounceWindowMs = 1000

func (svc ProgressService) Id() string {
	return PROGRESS_SVC
}

func (svc *ProgressService) Configure(ctx *appContext.Context) error {
	svc.window = time.Duration(defaultDebounceWindowMs) * time.Millisecond
	if ms := os.Getenv("PROGRESS_DEBOUNCE_MS"); ms != "" {
		if parsed, err := strconv.Atoi(ms); err == nil && parsed > 0 {
			svc.window = time.Duration(parsed) * time.Millisecond
		}
	}

	svc.pending = make(map[string]*saveTimer)
	svc.mirror = make(map[string]*model.LessonProgress)
	return svc.DefaultService.Configure(ctx)
}

func (svc *ProgressService) Start() error {
	store := resolveStore(svc.Service(POSTGRES_SVC), svc.Service(SQLITE_SVC))
	svc.progressRepo = repositories.NewProgressRepository(store.Db())
	return nil
}

func (svc *ProgressService) Shutdown() {
	svc.CancelAll()
}

// saveTimer is a cancellable delayed save for one conversation. The payload
// is replaced wholesale on reschedule, so only the latest snapshot within
// the window is persisted.
type saveTimer struct {
	timer   *time.Timer
	payload dto.SaveProgressRequest
}

// Load fetches the persisted snapshot for session hydration. A blank
// conversation id short-circuits; a store failure reads as "no prior
// progress" so the lesson starts fresh rather than erroring.
func (svc *ProgressService) Load(conversationID string) *dto.ProgressResponse {
	if conversationID == "" {
		return nil
	}

	progress, err := svc.progressRepo.GetProgress(conversationID)
	if err != nil {
		log.WithError(err).WithField(logConversationID, conversationID).
			Debug("No prior progress, starting fresh")
		return nil
	}

	svc.setMirror(progress)
	return mapProgressToResponse(progress)
}

// Save writes a snapshot immediately with upsert semantics. The in-memory
// mirror is updated optimistically; a failed persist is logged and
// swallowed, never rolled back.
func (svc *ProgressService) Save(req dto.SaveProgressRequest) *dto.ProgressResponse {
	if req.ConversationID == "" {
		return nil
	}

	progress := &model.LessonProgress{
		ConversationID:       req.ConversationID,
		LessonID:             req.LessonID,
		ActiveStep:           req.ActiveStep,
		VisibleContentIDs:    repositories.MarshalIDs(req.VisibleContentIDs),
		CompletedSteps:       repositories.MarshalIDs(req.CompletedSteps),
		CompletionPercentage: req.CompletionPercentage,
	}
	svc.setMirror(progress)

	saved, err := svc.progressRepo.UpsertProgress(progress)
	if err != nil {
		recordSaveFailure()
		log.WithError(err).WithField(logConversationID, req.ConversationID).
			Warn("Progress save failed, keeping optimistic local state")
		return mapProgressToResponse(progress)
	}

	recordProgressSave("immediate")
	svc.setMirror(saved)
	return mapProgressToResponse(saved)
}

// DebouncedSave schedules a snapshot write, replacing any pending payload
// for the conversation (last write wins) and resetting the window. At most
// one write lands per window of activity.
func (svc *ProgressService) DebouncedSave(req dto.SaveProgressRequest) {
	if req.ConversationID == "" {
		return
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if pending, ok := svc.pending[req.ConversationID]; ok {
		pending.payload = req
		pending.timer.Reset(svc.window)
		recordDebounceCoalesced()
		return
	}

	pending := &saveTimer{payload: req}
	pending.timer = time.AfterFunc(svc.window, func() {
		svc.flushPending(req.ConversationID)
	})
	svc.pending[req.ConversationID] = pending
}

func (svc *ProgressService) flushPending(conversationID string) {
	svc.mu.Lock()
	pending, ok := svc.pending[conversationID]
	if !ok {
		svc.mu.Unlock()
		return
	}
	delete(svc.pending, conversationID)
	payload := pending.payload
	svc.mu.Unlock()

	progress := &model.LessonProgress{
		ConversationID:       payload.ConversationID,
		LessonID:             payload.LessonID,
		ActiveStep:           payload.ActiveStep,
		VisibleContentIDs:    repositories.MarshalIDs(payload.VisibleContentIDs),
		CompletedSteps:       repositories.MarshalIDs(payload.CompletedSteps),
		CompletionPercentage: payload.CompletionPercentage,
	}
	svc.setMirror(progress)

	saved, err := svc.progressRepo.UpsertProgress(progress)
	if err != nil {
		recordSaveFailure()
		log.WithError(err).WithField(logConversationID, conversationID).
			Warn("Debounced progress save failed")
		return
	}

	recordProgressSave("debounced")
	svc.setMirror(saved)
}

// CancelPending drops the scheduled save for one conversation without
// flushing, used on session teardown.
func (svc *ProgressService) CancelPending(conversationID string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if pending, ok := svc.pending[conversationID]; ok {
		pending.timer.Stop()
		delete(svc.pending, conversationID)
	}
}

func (svc *ProgressService) CancelAll() {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for id, pending := range svc.pending {
		pending.timer.Stop()
		delete(svc.pending, id)
	}
}

// MarkPaused writes the pause timestamp immediately, never through the
// debounce window.
func (svc *ProgressService) MarkPaused(conversationID string) error {
	now := time.Now()
	if err := svc.progressRepo.MarkPaused(conversationID, now); err != nil {
		recordSaveFailure()
		return err
	}

	svc.updateMirror(conversationID, func(p *model.LessonProgress) {
		p.PausedAt = &now
	})
	recordProgressSave("immediate")
	return nil
}

// MarkCompleted is terminal for the conversation: completion timestamp,
// 100 percent, pause cleared, all in a single persisted write.
func (svc *ProgressService) MarkCompleted(conversationID string) error {
	now := time.Now()
	if err := svc.progressRepo.MarkCompleted(conversationID, now); err != nil {
		recordSaveFailure()
		return err
	}

	svc.updateMirror(conversationID, func(p *model.LessonProgress) {
		p.CompletedAt = &now
		p.CompletionPercentage = 100
		p.PausedAt = nil
	})
	recordProgressSave("immediate")
	return nil
}

// ClearPause clears paused_at only, leaving every other field untouched.
func (svc *ProgressService) ClearPause(conversationID string) error {
	if err := svc.progressRepo.ClearPause(conversationID); err != nil {
		return err
	}

	svc.updateMirror(conversationID, func(p *model.LessonProgress) {
		p.PausedAt = nil
	})
	return nil
}

// Refresh re-fetches the row and replaces the mirror, discarding any
// optimistic local state.
func (svc *ProgressService) Refresh(conversationID string) (*dto.ProgressResponse, error) {
	progress, err := svc.progressRepo.GetProgress(conversationID)
	if err != nil {
		return nil, err
	}

	svc.setMirror(progress)
	return mapProgressToResponse(progress), nil
}

// Clear removes the row and all local state for the conversation.
func (svc *ProgressService) Clear(conversationID string) error {
	svc.CancelPending(conversationID)

	if err := svc.progressRepo.DeleteProgress(conversationID); err != nil {
		return err
	}

	svc.mirrorMu.Lock()
	delete(svc.mirror, conversationID)
	svc.mirrorMu.Unlock()
	return nil
}

// Mirror returns the in-memory copy, if any.
func (svc *ProgressService) Mirror(conversationID string) *dto.ProgressResponse {
	svc.mirrorMu.RLock()
	defer svc.mirrorMu.RUnlock()

	if progress, ok := svc.mirror[conversationID]; ok {
		return mapProgressToResponse(progress)
	}
	return nil
}

func (svc *ProgressService) setMirror(progress *model.LessonProgress) {
	svc.mirrorMu.Lock()
	svc.mirror[progress.ConversationID] = progress
	svc.mirrorMu.Unlock()
}

func (svc *ProgressService) updateMirror(conversationID string, mutate func(*model.LessonProgress)) {
	svc.mirrorMu.Lock()
	defer svc.mirrorMu.Unlock()

	if progress, ok := svc.mirror[conversationID]; ok {
		mutate(progress)
	}
}

const logConversationID = shared.ConversationID

func mapProgressToResponse(progress *model.LessonProgress) *dto.ProgressResponse {
	return &dto.ProgressResponse{
		ConversationID:       progress.ConversationID,
		LessonID:             progress.LessonID,
		ActiveStep:           progress.ActiveStep,
		VisibleContentIDs:    repositories.UnmarshalIDs(progress.VisibleContentIDs),
		CompletedSteps:       repositories.UnmarshalIDs(progress.CompletedSteps),
		CompletionPercentage: progress.CompletionPercentage,
		PausedAt:             progress.PausedAt,
		CompletedAt:          progress.CompletedAt,
	}
}
