package handlers

import (
	"mime/multipart"

	"github.com/cleo-edu/cleo_api/dto"
	"github.com/cleo-edu/cleo_api/model"
)

type LessonServiceInterface interface {
	GetLessons() (*dto.LessonCollectionResponse, error)
	GetLesson(lessonID string) (*dto.LessonResponse, error)
	CreateLesson(req dto.CreateLessonRequest) (*dto.LessonResponse, error)
	AddStep(lessonID string, req dto.CreateStepRequest) (*dto.StepResponse, error)
	UpsertBlock(lessonID string, req dto.CreateContentBlockRequest) (*model.ContentBlock, error)
	DeleteLesson(lessonID string) error
}

type SyncServiceInterface interface {
	StartSession(conversationID, lessonID string) (*dto.SyncStateResponse, error)
	HandleRawEvent(conversationID string, body []byte) (*dto.SyncStateResponse, error)
	ShowContent(conversationID, contentID string) (*dto.SyncStateResponse, error)
	GetState(conversationID string) (*dto.SyncStateResponse, error)
	Pause(conversationID string) error
	Resume(conversationID string) (*dto.SyncStateResponse, error)
	Complete(conversationID string) (*dto.SyncStateResponse, error)
	EndSession(conversationID string)
	GetProgress(conversationID string) (*dto.ProgressResponse, error)
	ClearProgress(conversationID string) error
}

type MediaServiceInterface interface {
	UploadBlockMedia(lessonID, blockID string, file *multipart.FileHeader) (*dto.UploadMediaResponse, error)
}
