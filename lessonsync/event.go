// Package lessonsync holds the content synchronization engine for the
// interactive tutoring screen: the driver (AI agent) emits content events,
// the engine reconciles them against the lesson catalog and keeps the
// per-conversation view state.
package lessonsync

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/cleo-edu/cleo_api/model"
)

const (
	EventMoveToStep     = "move_to_step"
	EventShowContent    = "show_content"
	EventCompleteStep   = "complete_step"
	EventUpsertContent  = "upsert_content"
	EventLessonComplete = "lesson_complete"
)

// ContentEvent is the closed set of events a driver can emit to steer
// lesson progression. Events are transient: consumed once, never stored.
type ContentEvent interface {
	Kind() string
}

// MoveToStep makes the referenced step active and reveals its content.
type MoveToStep struct {
	StepID string
}

func (MoveToStep) Kind() string { return EventMoveToStep }

// ShowContent reveals one content block.
type ShowContent struct {
	ContentID string
}

func (ShowContent) Kind() string { return EventShowContent }

// CompleteStep marks one step as completed.
type CompleteStep struct {
	StepID string
}

func (CompleteStep) Kind() string { return EventCompleteStep }

// UpsertContent carries a block inserted or updated by the driver mid-lesson.
// The catalog owns the insertion; the engine only reacts to AutoShow.
type UpsertContent struct {
	Block    model.ContentBlock
	AutoShow bool
}

func (UpsertContent) Kind() string { return EventUpsertContent }

// LessonComplete marks every step in the lesson as completed.
type LessonComplete struct{}

func (LessonComplete) Kind() string { return EventLessonComplete }

// envelope is the wire shape driver events arrive in.
type envelope struct {
	Type      string              `json:"type"`
	StepID    string              `json:"step_id,omitempty"`
	ContentID string              `json:"content_id,omitempty"`
	Block     *model.ContentBlock `json:"block,omitempty"`
	AutoShow  bool                `json:"auto_show,omitempty"`
}

var jsonAPI = sonic.ConfigDefault

// DecodeEvent parses a wire envelope into its concrete event. An
// unparseable body or an unrecognized type is an error; a recognized event
// with a missing reference decodes fine and no-ops at apply time.
func DecodeEvent(raw []byte) (ContentEvent, error) {
	var env envelope
	if err := jsonAPI.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed content event: %w", err)
	}

	switch env.Type {
	case EventMoveToStep:
		return MoveToStep{StepID: env.StepID}, nil
	case EventShowContent:
		return ShowContent{ContentID: env.ContentID}, nil
	case EventCompleteStep:
		return CompleteStep{StepID: env.StepID}, nil
	case EventUpsertContent:
		if env.Block == nil {
			return nil, fmt.Errorf("upsert_content event missing block")
		}
		return UpsertContent{Block: *env.Block, AutoShow: env.AutoShow}, nil
	case EventLessonComplete:
		return LessonComplete{}, nil
	default:
		return nil, fmt.Errorf("unknown content event type: %q", env.Type)
	}
}
