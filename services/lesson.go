// services/lesson.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/cleo-edu/cleo_api/dto"
	"github.com/cleo-edu/cleo_api/model"
	"github.com/cleo-edu/cleo_api/services/repositories"
	"github.com/cleo-edu/cleo_api/shared"
)

// LessonService is the lesson content catalog: it owns the authored steps
// and content blocks the sync engine resolves events against.
type LessonService struct {
	appContext.DefaultService

	store    Store
	redisSvc *RedisService

	lessonRepo *repositories.LessonRepository

	cacheTTL time.Duration
}

const LESSON_SVC = "lesson_svc"

func (svc LessonService) Id() string {
	return LESSON_SVC
}

func (svc *LessonService) Configure(ctx *appContext.Context) error {
	svc.cacheTTL = 10 * time.Minute
	return svc.DefaultService.Configure(ctx)
}

func (svc *LessonService) Start() error {
	svc.store = resolveStore(svc.Service(POSTGRES_SVC), svc.Service(SQLITE_SVC))
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	svc.lessonRepo = repositories.NewLessonRepository(svc.store.Db())
	return nil
}

func lessonDataCacheKey(lessonID string) string {
	return fmt.Sprintf("lesson:data:%s", lessonID)
}

// GetLessonData returns the assembled catalog view, serving from the Redis
// cache when warm. Cache failures fall through to the database.
func (svc *LessonService) GetLessonData(lessonID string) (*model.LessonData, error) {
	ctx := context.Background()
	key := lessonDataCacheKey(lessonID)

	var cached model.LessonData
	found, err := svc.redisSvc.GetJSON(ctx, key, &cached)
	if err != nil {
		log.WithError(err).Warn("Lesson cache read failed")
	}
	if found {
		recordCacheHit()
		return &cached, nil
	}
	recordCacheMiss()

	data, err := svc.lessonRepo.GetLessonData(lessonID)
	if err != nil {
		return nil, svc.store.HandleError(err)
	}

	if err := svc.redisSvc.SetJSON(ctx, key, data, svc.cacheTTL); err != nil {
		log.WithError(err).Warn("Lesson cache write failed")
	}
	return data, nil
}

func (svc *LessonService) invalidateCache(lessonID string) {
	if err := svc.redisSvc.Delete(context.Background(), lessonDataCacheKey(lessonID)); err != nil {
		log.WithError(err).Warn("Lesson cache invalidation failed")
	}
}

func (svc *LessonService) GetLessons() (*dto.LessonCollectionResponse, error) {
	lessons, err := svc.lessonRepo.GetLessons()
	if err != nil {
		return nil, svc.store.HandleError(err)
	}

	responses := make([]dto.LessonResponse, 0, len(lessons))
	for i := range lessons {
		data, err := svc.GetLessonData(lessons[i].ID)
		if err != nil {
			log.WithError(err).WithField("lesson_id", lessons[i].ID).Warn("Failed to assemble lesson")
			continue
		}
		responses = append(responses, svc.mapLessonDataToResponse(data))
	}

	return &dto.LessonCollectionResponse{
		Lessons: responses,
		Total:   len(responses),
	}, nil
}

func (svc *LessonService) GetLesson(lessonID string) (*dto.LessonResponse, error) {
	data, err := svc.GetLessonData(lessonID)
	if err != nil {
		return nil, err
	}
	resp := svc.mapLessonDataToResponse(data)
	return &resp, nil
}

func (svc *LessonService) CreateLesson(req dto.CreateLessonRequest) (*dto.LessonResponse, error) {
	lesson := &model.Lesson{
		Topic:     req.Topic,
		YearGroup: req.YearGroup,
		Subject:   req.Subject,
		IsActive:  true,
	}

	for _, step := range req.Steps {
		lesson.Steps = append(lesson.Steps, model.LessonStep{
			ID:    step.ID,
			Order: step.Order,
			Title: step.Title,
		})
	}

	for _, block := range req.Content {
		decoded, err := svc.buildBlock(block)
		if err != nil {
			return nil, err
		}
		lesson.Content = append(lesson.Content, *decoded)
	}

	data := &model.LessonData{Lesson: *lesson, Steps: lesson.Steps, Content: lesson.Content}
	if err := data.Validate(); err != nil {
		return nil, shared.ErrBadRequest(err.Error(), nil)
	}

	created, err := svc.lessonRepo.CreateLesson(lesson)
	if err != nil {
		return nil, svc.store.HandleError(err)
	}

	log.WithFields(log.Fields{
		"lesson_id": created.ID,
		"topic":     created.Topic,
		"steps":     len(created.Steps),
	}).Info("Lesson created")

	return svc.GetLesson(created.ID)
}

func (svc *LessonService) AddStep(lessonID string, req dto.CreateStepRequest) (*dto.StepResponse, error) {
	if _, err := svc.lessonRepo.GetLesson(lessonID); err != nil {
		return nil, svc.store.HandleError(err)
	}

	maxOrder, err := svc.lessonRepo.MaxStepOrder(lessonID)
	if err != nil {
		return nil, svc.store.HandleError(err)
	}
	if req.Order <= maxOrder {
		return nil, shared.ErrBadRequest(fmt.Sprintf("step order must exceed %d", maxOrder), nil)
	}

	step, err := svc.lessonRepo.CreateStep(&model.LessonStep{
		ID:       req.ID,
		LessonID: lessonID,
		Order:    req.Order,
		Title:    req.Title,
	})
	if err != nil {
		return nil, svc.store.HandleError(err)
	}

	svc.invalidateCache(lessonID)

	return &dto.StepResponse{
		ID:    step.ID,
		Order: step.Order,
		Title: step.Title,
	}, nil
}

// UpsertBlock inserts or updates one content block. Both the authoring API
// and driver upsert_content events land here; the block must reference an
// existing step of the lesson.
func (svc *LessonService) UpsertBlock(lessonID string, req dto.CreateContentBlockRequest) (*model.ContentBlock, error) {
	if _, err := svc.lessonRepo.GetStep(lessonID, req.StepID); err != nil {
		return nil, shared.ErrBadRequest(fmt.Sprintf("step %s not found in lesson", req.StepID), nil)
	}

	block, err := svc.buildBlock(req)
	if err != nil {
		return nil, err
	}
	block.LessonID = lessonID

	saved, err := svc.lessonRepo.UpsertBlock(block)
	if err != nil {
		return nil, svc.store.HandleError(err)
	}

	svc.invalidateCache(lessonID)
	return saved, nil
}

func (svc *LessonService) SetBlockMediaURL(lessonID, blockID, mediaURL string) error {
	if _, err := svc.lessonRepo.GetBlock(lessonID, blockID); err != nil {
		return svc.store.HandleError(err)
	}
	if err := svc.lessonRepo.UpdateBlockMediaURL(lessonID, blockID, mediaURL); err != nil {
		return svc.store.HandleError(err)
	}
	svc.invalidateCache(lessonID)
	return nil
}

func (svc *LessonService) DeleteLesson(lessonID string) error {
	if err := svc.lessonRepo.DeactivateLesson(lessonID); err != nil {
		return svc.store.HandleError(err)
	}
	svc.invalidateCache(lessonID)
	return nil
}

func (svc *LessonService) buildBlock(req dto.CreateContentBlockRequest) (*model.ContentBlock, error) {
	if _, err := model.DecodeBlockData(req.Type, req.Data); err != nil {
		return nil, shared.ErrBadRequest(err.Error(), nil)
	}

	var prereqs json.RawMessage
	if len(req.Prerequisites) > 0 {
		prereqs, _ = json.Marshal(req.Prerequisites)
	}

	return &model.ContentBlock{
		ID:            req.ID,
		StepID:        req.StepID,
		Type:          req.Type,
		Data:          req.Data,
		Title:         req.Title,
		TeachingNotes: req.TeachingNotes,
		Prerequisites: prereqs,
	}, nil
}

func (svc *LessonService) mapLessonDataToResponse(data *model.LessonData) dto.LessonResponse {
	steps := make([]dto.StepResponse, len(data.Steps))
	for i, step := range data.Steps {
		steps[i] = dto.StepResponse{
			ID:        step.ID,
			Order:     step.Order,
			Title:     step.Title,
			Completed: step.Completed,
		}
	}

	content := make([]dto.ContentBlockResponse, len(data.Content))
	for i, block := range data.Content {
		var prereqs []string
		if len(block.Prerequisites) > 0 {
			_ = json.Unmarshal(block.Prerequisites, &prereqs)
		}
		content[i] = dto.ContentBlockResponse{
			ID:            block.ID,
			StepID:        block.StepID,
			Type:          block.Type,
			Data:          block.Data,
			Title:         block.Title,
			TeachingNotes: block.TeachingNotes,
			Prerequisites: prereqs,
			MediaURL:      block.MediaURL,
		}
	}

	return dto.LessonResponse{
		ID:        data.Lesson.ID,
		Topic:     data.Lesson.Topic,
		YearGroup: data.Lesson.YearGroup,
		Subject:   data.Lesson.Subject,
		Steps:     steps,
		Content:   content,
	}
}
