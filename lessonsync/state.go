package lessonsync

import "github.com/cleo-edu/cleo_api/model"

// State is the in-memory view state for one conversation. VisibleContent
// preserves first-seen insertion order and holds no duplicates;
// CompletedSteps is a deduplicated set whose order carries no meaning.
type State struct {
	ActiveStep     int      `json:"active_step"`
	VisibleContent []string `json:"visible_content"`
	CompletedSteps []string `json:"completed_steps"`
}

// NewState returns the empty state a session starts from.
func NewState() State {
	return State{
		ActiveStep:     0,
		VisibleContent: []string{},
		CompletedSteps: []string{},
	}
}

// Clone returns a deep copy so callers can hold snapshots safely.
func (s State) Clone() State {
	out := State{
		ActiveStep:     s.ActiveStep,
		VisibleContent: make([]string, len(s.VisibleContent)),
		CompletedSteps: make([]string, len(s.CompletedSteps)),
	}
	copy(out.VisibleContent, s.VisibleContent)
	copy(out.CompletedSteps, s.CompletedSteps)
	return out
}

// Apply transitions state by one event against the lesson catalog. It is
// pure: inputs are never mutated, the returned state is a fresh copy.
// Unknown step or content references are silent no-ops because the driver
// and the catalog may be eventually consistent while content streams in.
func Apply(s State, event ContentEvent, lesson *model.LessonData) State {
	next := s.Clone()

	switch ev := event.(type) {
	case MoveToStep:
		if ev.StepID == "" || lesson == nil {
			return next
		}
		idx := lesson.StepIndex(ev.StepID)
		if idx < 0 {
			return next
		}
		next.ActiveStep = idx
		for _, id := range lesson.StepContent(ev.StepID) {
			next.VisibleContent = appendUnique(next.VisibleContent, id)
		}

	case ShowContent:
		if ev.ContentID == "" {
			return next
		}
		next.VisibleContent = appendUnique(next.VisibleContent, ev.ContentID)

	case CompleteStep:
		if ev.StepID == "" {
			return next
		}
		next.CompletedSteps = appendUnique(next.CompletedSteps, ev.StepID)

	case UpsertContent:
		// Block storage is the catalog's job; the engine only reveals it.
		if ev.AutoShow && ev.Block.ID != "" {
			next.VisibleContent = appendUnique(next.VisibleContent, ev.Block.ID)
		}

	case LessonComplete:
		if lesson == nil {
			return next
		}
		// Union, never replace: ids completed against an older catalog
		// view stay completed.
		for _, id := range lesson.StepIDs() {
			next.CompletedSteps = appendUnique(next.CompletedSteps, id)
		}
	}

	return next
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
