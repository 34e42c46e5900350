package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cleo-edu/cleo_api/model"
)

type LessonRepository struct {
	BaseRepository
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *LessonRepository) CreateLesson(lesson *model.Lesson) (*model.Lesson, error) {
	if lesson.ID == "" {
		id, _ := uuid.NewV7()
		lesson.ID = id.String()
	}
	lesson.CreatedAt = time.Now()
	lesson.UpdatedAt = time.Now()

	for i := range lesson.Steps {
		if lesson.Steps[i].ID == "" {
			id, _ := uuid.NewV7()
			lesson.Steps[i].ID = id.String()
		}
		lesson.Steps[i].LessonID = lesson.ID
	}
	for i := range lesson.Content {
		if lesson.Content[i].ID == "" {
			id, _ := uuid.NewV7()
			lesson.Content[i].ID = id.String()
		}
		lesson.Content[i].LessonID = lesson.ID
	}

	if err := ds.db.Create(lesson).Error; err != nil {
		return nil, err
	}
	return lesson, nil
}

func (ds *LessonRepository) GetLesson(id string) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := ds.db.Where("id = ?", id).First(&lesson).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (ds *LessonRepository) GetLessons() ([]model.Lesson, error) {
	var lessons []model.Lesson
	if err := ds.db.Where("is_active = ?", true).Find(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

// GetLessonData assembles the full catalog view the sync engine runs
// against: the lesson row, steps ordered by their order column, and every
// content block in insertion order.
func (ds *LessonRepository) GetLessonData(lessonID string) (*model.LessonData, error) {
	lesson, err := ds.GetLesson(lessonID)
	if err != nil {
		return nil, err
	}

	var steps []model.LessonStep
	if err := ds.db.Where("lesson_id = ?", lessonID).Order(`"order" asc`).Find(&steps).Error; err != nil {
		return nil, err
	}

	var content []model.ContentBlock
	if err := ds.db.Where("lesson_id = ?", lessonID).Order("created_at asc").Find(&content).Error; err != nil {
		return nil, err
	}

	return &model.LessonData{
		Lesson:  *lesson,
		Steps:   steps,
		Content: content,
	}, nil
}

func (ds *LessonRepository) CreateStep(step *model.LessonStep) (*model.LessonStep, error) {
	if step.ID == "" {
		id, _ := uuid.NewV7()
		step.ID = id.String()
	}
	step.CreatedAt = time.Now()
	step.UpdatedAt = time.Now()

	if err := ds.db.Create(step).Error; err != nil {
		return nil, err
	}
	return step, nil
}

func (ds *LessonRepository) GetStep(lessonID, stepID string) (*model.LessonStep, error) {
	var step model.LessonStep
	if err := ds.db.Where("lesson_id = ? AND id = ?", lessonID, stepID).First(&step).Error; err != nil {
		return nil, err
	}
	return &step, nil
}

func (ds *LessonRepository) MaxStepOrder(lessonID string) (int, error) {
	var maxOrder int
	err := ds.db.Model(&model.LessonStep{}).
		Where("lesson_id = ?", lessonID).
		Select(`COALESCE(MAX("order"), 0)`).
		Scan(&maxOrder).Error
	return maxOrder, err
}

func (ds *LessonRepository) GetBlock(lessonID, blockID string) (*model.ContentBlock, error) {
	var block model.ContentBlock
	if err := ds.db.Where("lesson_id = ? AND id = ?", lessonID, blockID).First(&block).Error; err != nil {
		return nil, err
	}
	return &block, nil
}

// UpsertBlock creates the block if absent, otherwise merge-updates the
// authored fields. Used by both the authoring API and upsert_content events.
func (ds *LessonRepository) UpsertBlock(block *model.ContentBlock) (*model.ContentBlock, error) {
	if block.ID == "" {
		id, _ := uuid.NewV7()
		block.ID = id.String()
	}

	var existing model.ContentBlock
	err := ds.db.Where("id = ?", block.ID).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		block.CreatedAt = time.Now()
		block.UpdatedAt = time.Now()
		if err := ds.db.Create(block).Error; err != nil {
			return nil, err
		}
		return block, nil
	}

	existing.StepID = block.StepID
	existing.Type = block.Type
	existing.Data = block.Data
	existing.Title = block.Title
	existing.TeachingNotes = block.TeachingNotes
	existing.Prerequisites = block.Prerequisites
	if block.MediaURL != "" {
		existing.MediaURL = block.MediaURL
	}
	existing.UpdatedAt = time.Now()

	if err := ds.db.Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (ds *LessonRepository) UpdateBlockMediaURL(lessonID, blockID, mediaURL string) error {
	return ds.db.Model(&model.ContentBlock{}).
		Where("lesson_id = ? AND id = ?", lessonID, blockID).
		Updates(map[string]interface{}{
			"media_url":  mediaURL,
			"updated_at": time.Now(),
		}).Error
}

func (ds *LessonRepository) DeactivateLesson(lessonID string) error {
	return ds.db.Model(&model.Lesson{}).
		Where("id = ?", lessonID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error
}
