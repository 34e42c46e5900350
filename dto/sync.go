package dto

import (
	"encoding/json"
	"time"
)

// Sync session DTOs

type StartSessionRequest struct {
	LessonID string `json:"lesson_id" validate:"required"`
}

// ContentEventRequest is the wire envelope for driver events. The raw body
// is handed to the sync engine's decoder; this shape exists for swagger and
// request validation of the discriminator.
type ContentEventRequest struct {
	Type      string          `json:"type" validate:"required"`
	StepID    string          `json:"step_id,omitempty"`
	ContentID string          `json:"content_id,omitempty"`
	Block     json.RawMessage `json:"block,omitempty"`
	AutoShow  bool            `json:"auto_show,omitempty"`
}

type SyncStateResponse struct {
	ConversationID string   `json:"conversation_id"`
	ActiveStep     int      `json:"active_step"`
	VisibleContent []string `json:"visible_content"`
	CompletedSteps []string `json:"completed_steps"`
}

type ProgressResponse struct {
	ConversationID       string     `json:"conversation_id"`
	LessonID             string     `json:"lesson_id"`
	ActiveStep           int        `json:"active_step"`
	VisibleContentIDs    []string   `json:"visible_content_ids"`
	CompletedSteps       []string   `json:"completed_steps"`
	CompletionPercentage float64    `json:"completion_percentage"`
	PausedAt             *time.Time `json:"paused_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// SaveProgressRequest is the partial snapshot the sync layer hands to the
// progress layer; missing conversation id short-circuits to a no-op.
type SaveProgressRequest struct {
	ConversationID       string   `json:"conversation_id" validate:"required"`
	LessonID             string   `json:"lesson_id"`
	ActiveStep           int      `json:"active_step"`
	VisibleContentIDs    []string `json:"visible_content_ids"`
	CompletedSteps       []string `json:"completed_steps"`
	CompletionPercentage float64  `json:"completion_percentage"`
}
