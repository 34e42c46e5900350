package lessonsync

import (
	"reflect"
	"testing"
)

func TestSessionNotifiesObserverPerEvent(t *testing.T) {
	lesson := testLesson()

	var snapshots []State
	session := NewSession(lesson, NewState(), func(s State) {
		snapshots = append(snapshots, s)
	})

	session.HandleEvent(MoveToStep{StepID: "s1"})
	session.HandleEvent(ShowContent{ContentID: "c2"})
	session.HandleEvent(MoveToStep{StepID: "nope"}) // no-op still notifies

	if len(snapshots) != 3 {
		t.Fatalf("expected 3 observer calls, got %d", len(snapshots))
	}

	last := snapshots[len(snapshots)-1]
	if !reflect.DeepEqual(last.VisibleContent, []string{"c1", "c2"}) {
		t.Errorf("expected visible [c1 c2], got %v", last.VisibleContent)
	}
	if last.ActiveStep != 0 {
		t.Errorf("expected active step 0, got %d", last.ActiveStep)
	}
}

func TestSessionObserverGetsSnapshotNotAlias(t *testing.T) {
	lesson := testLesson()

	var captured State
	session := NewSession(lesson, NewState(), func(s State) {
		captured = s
	})

	session.HandleEvent(ShowContent{ContentID: "c1"})
	captured.VisibleContent[0] = "mutated"

	state := session.State()
	if state.VisibleContent[0] != "c1" {
		t.Errorf("observer snapshot aliases session state: %v", state.VisibleContent)
	}
}

func TestSessionShowContentIdempotent(t *testing.T) {
	lesson := testLesson()

	calls := 0
	session := NewSession(lesson, NewState(), func(State) { calls++ })

	session.ShowContent("c2")
	state := session.ShowContent("c2")

	if !reflect.DeepEqual(state.VisibleContent, []string{"c2"}) {
		t.Errorf("expected [c2], got %v", state.VisibleContent)
	}
	if calls != 2 {
		t.Errorf("repeat reveal must still notify, got %d calls", calls)
	}
}

func TestSessionSetters(t *testing.T) {
	lesson := testLesson()

	calls := 0
	session := NewSession(lesson, NewState(), func(State) { calls++ })

	session.SetActiveStep(1)
	session.SetVisibleContent([]string{"c1", "c1", "c2"})
	session.SetCompletedSteps([]string{"s1", "s1"})

	state := session.State()
	if state.ActiveStep != 1 {
		t.Errorf("expected active step 1, got %d", state.ActiveStep)
	}
	if !reflect.DeepEqual(state.VisibleContent, []string{"c1", "c2"}) {
		t.Errorf("setter did not dedupe visible content: %v", state.VisibleContent)
	}
	if !reflect.DeepEqual(state.CompletedSteps, []string{"s1"}) {
		t.Errorf("setter did not dedupe completed steps: %v", state.CompletedSteps)
	}
	if calls != 3 {
		t.Errorf("expected 3 observer calls, got %d", calls)
	}
}

func TestSessionHydratesFromInitialState(t *testing.T) {
	lesson := testLesson()

	initial := State{
		ActiveStep:     1,
		VisibleContent: []string{"c1"},
		CompletedSteps: []string{"s1"},
	}
	session := NewSession(lesson, initial, nil)

	state := session.State()
	if !reflect.DeepEqual(state, initial) {
		t.Errorf("expected hydrated state %+v, got %+v", initial, state)
	}
}
