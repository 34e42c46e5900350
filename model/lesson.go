// model/lesson.go
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Lesson is the aggregate root for one authored lesson.
type Lesson struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Topic     string    `json:"topic" gorm:"not null"`
	YearGroup string    `json:"year_group" gorm:"not null"`
	Subject   string    `json:"subject"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Steps   []LessonStep   `json:"steps" gorm:"foreignKey:LessonID"`
	Content []ContentBlock `json:"content" gorm:"foreignKey:LessonID"`
}

// LessonStep is one ordered teaching unit within a lesson.
type LessonStep struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	LessonID  string    `json:"lesson_id" gorm:"not null;index"`
	Order     int       `json:"order" gorm:"not null"` // Step order within lesson, strictly increasing
	Title     string    `json:"title" gorm:"not null"`
	Completed bool      `json:"completed" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContentBlock is one discrete, typed unit of lesson material belonging to a step.
type ContentBlock struct {
	ID            string          `json:"id" gorm:"primaryKey"`
	LessonID      string          `json:"lesson_id" gorm:"not null;index"`
	StepID        string          `json:"step_id" gorm:"not null;index"`
	Type          string          `json:"type" gorm:"not null"` // text, table, definition, question, diagram, worked_example, writing_box, code_example, quote_analysis
	Data          json.RawMessage `json:"data" gorm:"type:text"`
	Title         string          `json:"title"`
	TeachingNotes string          `json:"teaching_notes" gorm:"type:text"`
	Prerequisites json.RawMessage `json:"prerequisites" gorm:"type:text"` // JSON array of block IDs
	MediaURL      string          `json:"media_url"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LessonProgress is the persisted progress snapshot for one conversation.
// One row per conversation, upserted by the progress layer.
type LessonProgress struct {
	ID                   string          `json:"id" gorm:"primaryKey"`
	ConversationID       string          `json:"conversation_id" gorm:"uniqueIndex;not null"`
	LessonID             string          `json:"lesson_id" gorm:"not null;index"`
	ActiveStep           int             `json:"active_step" gorm:"default:0"`
	VisibleContentIDs    json.RawMessage `json:"visible_content_ids" gorm:"type:text"` // JSON array of block IDs, insertion order preserved
	CompletedSteps       json.RawMessage `json:"completed_steps" gorm:"type:text"`     // JSON array of step IDs
	CompletionPercentage float64         `json:"completion_percentage" gorm:"default:0"`
	PausedAt             *time.Time      `json:"paused_at"`
	CompletedAt          *time.Time      `json:"completed_at"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// LessonData is the assembled, read-only view of a lesson the sync engine
// operates over. Steps are ordered by their Order field.
type LessonData struct {
	Lesson  Lesson         `json:"lesson"`
	Steps   []LessonStep   `json:"steps"`
	Content []ContentBlock `json:"content"`
}

// StepIndex returns the positional index of stepID within Steps, or -1.
func (ld *LessonData) StepIndex(stepID string) int {
	for i, step := range ld.Steps {
		if step.ID == stepID {
			return i
		}
	}
	return -1
}

// StepContent returns the IDs of all content blocks belonging to stepID,
// in catalog order.
func (ld *LessonData) StepContent(stepID string) []string {
	var ids []string
	for _, block := range ld.Content {
		if block.StepID == stepID {
			ids = append(ids, block.ID)
		}
	}
	return ids
}

// StepIDs returns every step ID in step order.
func (ld *LessonData) StepIDs() []string {
	ids := make([]string, len(ld.Steps))
	for i, step := range ld.Steps {
		ids[i] = step.ID
	}
	return ids
}

// Validate checks the catalog invariants: step IDs unique, step order
// strictly increasing, every block referencing an existing step.
func (ld *LessonData) Validate() error {
	stepIDs := make(map[string]bool, len(ld.Steps))
	lastOrder := 0
	for i, step := range ld.Steps {
		if stepIDs[step.ID] {
			return fmt.Errorf("duplicate step id %s", step.ID)
		}
		stepIDs[step.ID] = true

		if i > 0 && step.Order <= lastOrder {
			return fmt.Errorf("step %s order %d is not strictly increasing", step.ID, step.Order)
		}
		lastOrder = step.Order
	}

	for _, block := range ld.Content {
		if !stepIDs[block.StepID] {
			return fmt.Errorf("content block %s references unknown step %s", block.ID, block.StepID)
		}
	}
	return nil
}
