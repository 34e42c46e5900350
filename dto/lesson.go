package dto

import "encoding/json"

// Lesson catalog DTOs

type CreateStepRequest struct {
	ID    string `json:"id"`
	Order int    `json:"order" validate:"required,min=1"`
	Title string `json:"title" validate:"required"`
}

type CreateContentBlockRequest struct {
	ID            string          `json:"id"`
	StepID        string          `json:"step_id" validate:"required"`
	Type          string          `json:"type" validate:"required,content_block_type"`
	Data          json.RawMessage `json:"data" validate:"required"`
	Title         string          `json:"title"`
	TeachingNotes string          `json:"teaching_notes"`
	Prerequisites []string        `json:"prerequisites"`
}

type CreateLessonRequest struct {
	Topic     string                      `json:"topic" validate:"required"`
	YearGroup string                      `json:"year_group" validate:"required"`
	Subject   string                      `json:"subject"`
	Steps     []CreateStepRequest         `json:"steps" validate:"required,min=1,dive"`
	Content   []CreateContentBlockRequest `json:"content" validate:"dive"`
}

type StepResponse struct {
	ID        string `json:"id"`
	Order     int    `json:"order"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type ContentBlockResponse struct {
	ID            string          `json:"id"`
	StepID        string          `json:"step_id"`
	Type          string          `json:"type"`
	Data          json.RawMessage `json:"data"`
	Title         string          `json:"title,omitempty"`
	TeachingNotes string          `json:"teaching_notes,omitempty"`
	Prerequisites []string        `json:"prerequisites,omitempty"`
	MediaURL      string          `json:"media_url,omitempty"`
}

type LessonResponse struct {
	ID        string                 `json:"id"`
	Topic     string                 `json:"topic"`
	YearGroup string                 `json:"year_group"`
	Subject   string                 `json:"subject,omitempty"`
	Steps     []StepResponse         `json:"steps"`
	Content   []ContentBlockResponse `json:"content"`
}

type LessonCollectionResponse struct {
	Lessons []LessonResponse `json:"lessons"`
	Total   int              `json:"total"`
}
