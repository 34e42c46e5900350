package lessonsync

import (
	"reflect"
	"sort"
	"testing"

	"github.com/cleo-edu/cleo_api/model"
)

func testLesson() *model.LessonData {
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

func TestApplyMoveToStep(t *testing.T) {
	lesson := testLesson()

	t.Run("reveals only the target step's content", func(t *testing.T) {
		state := Apply(NewState(), MoveToStep{StepID: "s2"}, lesson)

		if state.ActiveStep != 1 {
			t.Errorf("expected active step 1, got %d", state.ActiveStep)
		}
		if !reflect.DeepEqual(state.VisibleContent, []string{"c2"}) {
			t.Errorf("expected visible [c2], got %v", state.VisibleContent)
		}
		if len(state.CompletedSteps) != 0 {
			t.Errorf("expected no completed steps, got %v", state.CompletedSteps)
		}
	})

	t.Run("preserves already visible content order", func(t *testing.T) {
		state := NewState()
		state.VisibleContent = []string{"c2"}

		state = Apply(state, MoveToStep{StepID: "s1"}, lesson)
		if !reflect.DeepEqual(state.VisibleContent, []string{"c2", "c1"}) {
			t.Errorf("expected [c2 c1], got %v", state.VisibleContent)
		}
	})

	t.Run("unknown step is a silent no-op", func(t *testing.T) {
		before := Apply(NewState(), ShowContent{ContentID: "c1"}, lesson)
		after := Apply(before, MoveToStep{StepID: "nonexistent"}, lesson)

		if !reflect.DeepEqual(before, after) {
			t.Errorf("state changed on unknown step: %+v vs %+v", before, after)
		}
	})

	t.Run("missing step id is a no-op", func(t *testing.T) {
		state := Apply(NewState(), MoveToStep{}, lesson)
		if !reflect.DeepEqual(state, NewState()) {
			t.Errorf("expected unchanged state, got %+v", state)
		}
	})
}

func TestApplyShowContentIdempotent(t *testing.T) {
	lesson := testLesson()

	once := Apply(NewState(), ShowContent{ContentID: "c1"}, lesson)
	twice := Apply(once, ShowContent{ContentID: "c1"}, lesson)

	if !reflect.DeepEqual(once.VisibleContent, twice.VisibleContent) {
		t.Errorf("show_content not idempotent: %v vs %v", once.VisibleContent, twice.VisibleContent)
	}
}

func TestApplyShowContentOrderPreserved(t *testing.T) {
	lesson := testLesson()

	state := NewState()
	for _, id := range []string{"c3", "c1", "c2", "c1"} {
		state = Apply(state, ShowContent{ContentID: id}, lesson)
	}

	expected := []string{"c3", "c1", "c2"}
	if !reflect.DeepEqual(state.VisibleContent, expected) {
		t.Errorf("expected %v, got %v", expected, state.VisibleContent)
	}
}

func TestApplyCompleteStepIdempotent(t *testing.T) {
	lesson := testLesson()

	once := Apply(NewState(), CompleteStep{StepID: "s1"}, lesson)
	twice := Apply(once, CompleteStep{StepID: "s1"}, lesson)

	if !reflect.DeepEqual(once.CompletedSteps, twice.CompletedSteps) {
		t.Errorf("complete_step not idempotent: %v vs %v", once.CompletedSteps, twice.CompletedSteps)
	}
}

func TestApplyLessonComplete(t *testing.T) {
	lesson := testLesson()

	t.Run("marks every step completed", func(t *testing.T) {
		state := Apply(NewState(), LessonComplete{}, lesson)

		got := append([]string{}, state.CompletedSteps...)
		sort.Strings(got)
		if !reflect.DeepEqual(got, []string{"s1", "s2"}) {
			t.Errorf("expected all step ids, got %v", state.CompletedSteps)
		}
	})

	t.Run("never removes previously completed steps", func(t *testing.T) {
		state := Apply(NewState(), CompleteStep{StepID: "s1"}, lesson)
		state = Apply(state, LessonComplete{}, lesson)

		found := false
		for _, id := range state.CompletedSteps {
			if id == "s1" {
				found = true
			}
		}
		if !found {
			t.Errorf("s1 dropped from completed steps: %v", state.CompletedSteps)
		}
		if len(state.CompletedSteps) != len(lesson.Steps) {
			t.Errorf("expected %d completed steps, got %v", len(lesson.Steps), state.CompletedSteps)
		}
	})

	t.Run("keeps completed ids missing from the current catalog view", func(t *testing.T) {
		state := NewState()
		state.CompletedSteps = []string{"s-removed"}
		state = Apply(state, LessonComplete{}, lesson)

		got := append([]string{}, state.CompletedSteps...)
		sort.Strings(got)
		if !reflect.DeepEqual(got, []string{"s-removed", "s1", "s2"}) {
			t.Errorf("expected union with prior ids, got %v", state.CompletedSteps)
		}
	})
}

func TestApplyUpsertContent(t *testing.T) {
	lesson := testLesson()

	t.Run("auto show reveals the block", func(t *testing.T) {
		block := model.ContentBlock{ID: "c9", StepID: "s1", Type: "text"}
		state := Apply(NewState(), UpsertContent{Block: block, AutoShow: true}, lesson)

		if !reflect.DeepEqual(state.VisibleContent, []string{"c9"}) {
			t.Errorf("expected [c9], got %v", state.VisibleContent)
		}
	})

	t.Run("without auto show state is unchanged", func(t *testing.T) {
		block := model.ContentBlock{ID: "c9", StepID: "s1", Type: "text"}
		state := Apply(NewState(), UpsertContent{Block: block}, lesson)

		if !reflect.DeepEqual(state, NewState()) {
			t.Errorf("expected unchanged state, got %+v", state)
		}
	})
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	lesson := testLesson()

	input := NewState()
	input.VisibleContent = []string{"c1"}
	input.CompletedSteps = []string{"s1"}
	snapshot := input.Clone()

	_ = Apply(input, MoveToStep{StepID: "s2"}, lesson)
	_ = Apply(input, LessonComplete{}, lesson)
	_ = Apply(input, ShowContent{ContentID: "c2"}, lesson)

	if !reflect.DeepEqual(input, snapshot) {
		t.Errorf("input state mutated: %+v vs %+v", input, snapshot)
	}
}
