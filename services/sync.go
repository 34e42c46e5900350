// services/sync.go
package services

import (
	"fmt"
	"sync"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/cleo-edu/cleo_api/dto"
	"github.com/cleo-edu/cleo_api/lessonsync"
	"github.com/cleo-edu/cleo_api/model"
	"github.com/cleo-edu/cleo_api/shared"
)

// lessonCatalog is the slice of the lesson service the sync engine needs.
type lessonCatalog interface {
	GetLessonData(lessonID string) (*model.LessonData, error)
	UpsertBlock(lessonID string, req dto.CreateContentBlockRequest) (*model.ContentBlock, error)
}

// progressMirror is the slice of the progress service the sync engine needs.
type progressMirror interface {
	Load(conversationID string) *dto.ProgressResponse
	Save(req dto.SaveProgressRequest) *dto.ProgressResponse
	DebouncedSave(req dto.SaveProgressRequest)
	CancelPending(conversationID string)
	MarkPaused(conversationID string) error
	MarkCompleted(conversationID string) error
	ClearPause(conversationID string) error
	Refresh(conversationID string) (*dto.ProgressResponse, error)
	Clear(conversationID string) error
}

// SyncService owns the live lesson sessions, one per conversation: it
// routes driver events into the engine and mirrors every state change to
// the progress layer through debounced saves.
type SyncService struct {
	appContext.DefaultService

	catalog  lessonCatalog
	progress progressMirror

	mu       sync.Mutex
	sessions map[string]*liveSession
}

type liveSession struct {
	session  *lessonsync.Session
	lessonID string
}

const SYNC_SVC = "sync_svc"

func (svc SyncService) Id() string {
	return SYNC_SVC
}

func (svc *SyncService) Configure(ctx *appContext.Context) error {
	svc.sessions = make(map[string]*liveSession)
	return svc.DefaultService.Configure(ctx)
}

func (svc *SyncService) Start() error {
	svc.catalog = svc.Service(LESSON_SVC).(*LessonService)
	svc.progress = svc.Service(PROGRESS_SVC).(*ProgressService)
	return nil
}

func (svc *SyncService) Shutdown() {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for id := range svc.sessions {
		svc.progress.CancelPending(id)
		delete(svc.sessions, id)
	}
	recordSessionCount(0)
}

// StartSession creates (or resumes) the live session for a conversation,
// hydrating state from the last persisted snapshot. Resuming clears any
// pause timestamp. Idempotent: an already-live session is returned as-is.
func (svc *SyncService) StartSession(conversationID, lessonID string) (*dto.SyncStateResponse, error) {
	svc.mu.Lock()
	if live, ok := svc.sessions[conversationID]; ok {
		svc.mu.Unlock()
		return svc.stateResponse(conversationID, live.session.State()), nil
	}
	svc.mu.Unlock()

	lesson, err := svc.catalog.GetLessonData(lessonID)
	if err != nil {
		return nil, err
	}

	initial := lessonsync.NewState()
	if saved := svc.progress.Load(conversationID); saved != nil {
		initial.ActiveStep = saved.ActiveStep
		initial.VisibleContent = saved.VisibleContentIDs
		initial.CompletedSteps = saved.CompletedSteps

		if saved.PausedAt != nil {
			if err := svc.progress.ClearPause(conversationID); err != nil {
				log.WithError(err).WithField(logConversationID, conversationID).
					Warn("Failed to clear pause on resume")
			}
		}
	}

	session := lessonsync.NewSession(lesson, initial, svc.observer(conversationID, lessonID))

	svc.mu.Lock()
	svc.sessions[conversationID] = &liveSession{session: session, lessonID: lessonID}
	count := len(svc.sessions)
	svc.mu.Unlock()
	recordSessionCount(count)

	log.WithFields(log.Fields{
		logConversationID: conversationID,
		"lesson_id":       lessonID,
	}).Info("Lesson session started")

	return svc.stateResponse(conversationID, session.State()), nil
}

// observer builds the state-change callback for one conversation: every
// snapshot is pushed into the debounced save path with a recomputed
// completion percentage.
func (svc *SyncService) observer(conversationID, lessonID string) lessonsync.Observer {
	return func(state lessonsync.State) {
		svc.progress.DebouncedSave(dto.SaveProgressRequest{
			ConversationID:       conversationID,
			LessonID:             lessonID,
			ActiveStep:           state.ActiveStep,
			VisibleContentIDs:    state.VisibleContent,
			CompletedSteps:       state.CompletedSteps,
			CompletionPercentage: svc.completionPercentage(conversationID, state),
		})
	}
}

func (svc *SyncService) completionPercentage(conversationID string, state lessonsync.State) float64 {
	live := svc.liveSession(conversationID)
	if live == nil {
		return 0
	}
	lesson := live.session.Lesson()
	total := len(lesson.Steps)
	if total == 0 {
		return 0
	}

	// Only ids the catalog knows count; the driver may have completed
	// steps that never materialized.
	completed := 0
	for _, id := range state.CompletedSteps {
		if lesson.StepIndex(id) >= 0 {
			completed++
		}
	}
	return float64(completed) / float64(total) * 100
}

// HandleRawEvent decodes and applies one driver event. Unknown references
// inside a well-formed event are silent no-ops; an unparseable envelope is
// a bad request.
func (svc *SyncService) HandleRawEvent(conversationID string, body []byte) (*dto.SyncStateResponse, error) {
	event, err := lessonsync.DecodeEvent(body)
	if err != nil {
		return nil, shared.ErrBadRequest(err.Error(), nil)
	}
	return svc.HandleEvent(conversationID, event)
}

// HandleEvent applies one decoded event to the conversation's session,
// restoring the session from persisted progress when the process has
// restarted since the lesson began.
func (svc *SyncService) HandleEvent(conversationID string, event lessonsync.ContentEvent) (*dto.SyncStateResponse, error) {
	live, err := svc.sessionFor(conversationID)
	if err != nil {
		return nil, err
	}

	if upsert, ok := event.(lessonsync.UpsertContent); ok {
		event, err = svc.applyUpsert(live, upsert)
		if err != nil {
			return nil, err
		}
	}

	svc.logUnknownReference(live, event)
	recordEventApplied(event.Kind())

	state := live.session.HandleEvent(event)
	return svc.stateResponse(conversationID, state), nil
}

// applyUpsert lands the block in the catalog before the engine reacts to
// AutoShow, then refreshes the session's catalog view so later events see
// the block.
func (svc *SyncService) applyUpsert(live *liveSession, upsert lessonsync.UpsertContent) (lessonsync.ContentEvent, error) {
	block := upsert.Block
	saved, err := svc.catalog.UpsertBlock(live.lessonID, dto.CreateContentBlockRequest{
		ID:            block.ID,
		StepID:        block.StepID,
		Type:          block.Type,
		Data:          block.Data,
		Title:         block.Title,
		TeachingNotes: block.TeachingNotes,
	})
	if err != nil {
		return nil, err
	}

	lesson, err := svc.catalog.GetLessonData(live.lessonID)
	if err != nil {
		return nil, err
	}
	live.session.SetLesson(lesson)

	return lessonsync.UpsertContent{Block: *saved, AutoShow: upsert.AutoShow}, nil
}

func (svc *SyncService) logUnknownReference(live *liveSession, event lessonsync.ContentEvent) {
	lesson := live.session.Lesson()

	switch ev := event.(type) {
	case lessonsync.MoveToStep:
		if ev.StepID != "" && lesson.StepIndex(ev.StepID) < 0 {
			recordUnknownReference()
			log.WithField("step_id", ev.StepID).Debug("move_to_step references unknown step, ignoring")
		}
	case lessonsync.CompleteStep:
		if ev.StepID != "" && lesson.StepIndex(ev.StepID) < 0 {
			recordUnknownReference()
			log.WithField("step_id", ev.StepID).Debug("complete_step references unknown step")
		}
	}
}

// ShowContent is the learner-triggered reveal used by the UI (e.g. after
// answering a question).
func (svc *SyncService) ShowContent(conversationID, contentID string) (*dto.SyncStateResponse, error) {
	return svc.HandleEvent(conversationID, lessonsync.ShowContent{ContentID: contentID})
}

// GetState returns the live snapshot for a conversation.
func (svc *SyncService) GetState(conversationID string) (*dto.SyncStateResponse, error) {
	live, err := svc.sessionFor(conversationID)
	if err != nil {
		return nil, err
	}
	return svc.stateResponse(conversationID, live.session.State()), nil
}

// Pause persists the pause timestamp immediately; the live session stays so
// the driver can resume without rehydration.
func (svc *SyncService) Pause(conversationID string) error {
	if _, err := svc.sessionFor(conversationID); err != nil {
		return err
	}
	return svc.progress.MarkPaused(conversationID)
}

// Resume clears the pause timestamp only.
func (svc *SyncService) Resume(conversationID string) (*dto.SyncStateResponse, error) {
	live, err := svc.sessionFor(conversationID)
	if err != nil {
		return nil, err
	}
	if err := svc.progress.ClearPause(conversationID); err != nil {
		return nil, err
	}
	return svc.stateResponse(conversationID, live.session.State()), nil
}

// Complete marks every step done in the live session, then writes the
// terminal progress row in a single persisted update.
func (svc *SyncService) Complete(conversationID string) (*dto.SyncStateResponse, error) {
	live, err := svc.sessionFor(conversationID)
	if err != nil {
		return nil, err
	}

	recordEventApplied(lessonsync.EventLessonComplete)
	state := live.session.HandleEvent(lessonsync.LessonComplete{})

	// Land the final snapshot synchronously before the terminal write.
	// The observer's debounced copy is dropped: the row must exist and
	// carry the full completed set before completed_at goes down, even
	// when the lesson finishes inside the first debounce window.
	svc.progress.CancelPending(conversationID)
	svc.progress.Save(dto.SaveProgressRequest{
		ConversationID:       conversationID,
		LessonID:             live.lessonID,
		ActiveStep:           state.ActiveStep,
		VisibleContentIDs:    state.VisibleContent,
		CompletedSteps:       state.CompletedSteps,
		CompletionPercentage: svc.completionPercentage(conversationID, state),
	})
	if err := svc.progress.MarkCompleted(conversationID); err != nil {
		return nil, err
	}

	return svc.stateResponse(conversationID, state), nil
}

// EndSession tears down the live session, cancelling any pending debounced
// save without flushing it.
func (svc *SyncService) EndSession(conversationID string) {
	svc.progress.CancelPending(conversationID)

	svc.mu.Lock()
	delete(svc.sessions, conversationID)
	count := len(svc.sessions)
	svc.mu.Unlock()
	recordSessionCount(count)
}

// GetProgress reads the durable snapshot, bypassing the live session.
func (svc *SyncService) GetProgress(conversationID string) (*dto.ProgressResponse, error) {
	progress, err := svc.progress.Refresh(conversationID)
	if err != nil {
		return nil, shared.ErrNotFound("no progress for conversation")
	}
	return progress, nil
}

// ClearProgress deletes the durable snapshot and ends any live session.
func (svc *SyncService) ClearProgress(conversationID string) error {
	svc.EndSession(conversationID)
	return svc.progress.Clear(conversationID)
}

func (svc *SyncService) liveSession(conversationID string) *liveSession {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.sessions[conversationID]
}

// sessionFor returns the live session, restoring it from the persisted
// progress row if the process restarted mid-lesson.
func (svc *SyncService) sessionFor(conversationID string) (*liveSession, error) {
	if live := svc.liveSession(conversationID); live != nil {
		return live, nil
	}

	saved := svc.progress.Load(conversationID)
	if saved == nil {
		return nil, shared.ErrNotFound(fmt.Sprintf("no session for conversation %s", conversationID))
	}

	if _, err := svc.StartSession(conversationID, saved.LessonID); err != nil {
		return nil, err
	}
	return svc.liveSession(conversationID), nil
}

func (svc *SyncService) stateResponse(conversationID string, state lessonsync.State) *dto.SyncStateResponse {
	return &dto.SyncStateResponse{
		ConversationID: conversationID,
		ActiveStep:     state.ActiveStep,
		VisibleContent: state.VisibleContent,
		CompletedSteps: state.CompletedSteps,
	}
}
