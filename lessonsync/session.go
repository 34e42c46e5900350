package lessonsync

import (
	gosync "sync"

	"github.com/cleo-edu/cleo_api/model"
)

// Observer receives the full state snapshot after every handled event,
// never a diff, so the persistence layer always sees a consistent triple.
type Observer func(State)

// Session holds the live sync state for one conversation. Events arrive
// over HTTP so application is serialized under a mutex, preserving the
// strict arrival-order guarantee of the engine.
type Session struct {
	mu       gosync.Mutex
	state    State
	lesson   *model.LessonData
	observer Observer
}

func NewSession(lesson *model.LessonData, initial State, observer Observer) *Session {
	return &Session{
		state:    initial.Clone(),
		lesson:   lesson,
		observer: observer,
	}
}

// HandleEvent applies one event and notifies the observer exactly once,
// no-op events included.
func (s *Session) HandleEvent(event ContentEvent) State {
	s.mu.Lock()
	s.state = Apply(s.state, event, s.lesson)
	snapshot := s.state.Clone()
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
	return snapshot
}

// ShowContent is the imperative form of the show_content event, used when
// the learner reveals a block directly (e.g. answering a question).
func (s *Session) ShowContent(contentID string) State {
	return s.HandleEvent(ShowContent{ContentID: contentID})
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Lesson returns the catalog view the session resolves events against.
func (s *Session) Lesson() *model.LessonData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lesson
}

// SetLesson swaps the catalog view, used after an upsert_content lands in
// the catalog so later move_to_step events see the new block.
func (s *Session) SetLesson(lesson *model.LessonData) {
	s.mu.Lock()
	s.lesson = lesson
	s.mu.Unlock()
}

// Imperative overrides. These bypass event application but still notify
// the observer so persistence stays in step.

func (s *Session) SetActiveStep(idx int) {
	s.mu.Lock()
	s.state.ActiveStep = idx
	snapshot := s.state.Clone()
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
}

func (s *Session) SetVisibleContent(ids []string) {
	s.mu.Lock()
	s.state.VisibleContent = dedupe(ids)
	snapshot := s.state.Clone()
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
}

func (s *Session) SetCompletedSteps(ids []string) {
	s.mu.Lock()
	s.state.CompletedSteps = dedupe(ids)
	snapshot := s.state.Clone()
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = appendUnique(out, id)
	}
	return out
}
