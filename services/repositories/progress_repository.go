package repositories

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cleo-edu/cleo_api/model"
)

type ProgressRepository struct {
	BaseRepository
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *ProgressRepository) GetProgress(conversationID string) (*model.LessonProgress, error) {
	var progress model.LessonProgress
	if err := ds.db.Where("conversation_id = ?", conversationID).First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

// UpsertProgress creates the row on first save for a conversation,
// otherwise merge-updates the snapshot fields. Pause and completion
// timestamps are owned by their dedicated methods and left untouched here.
func (ds *ProgressRepository) UpsertProgress(progress *model.LessonProgress) (*model.LessonProgress, error) {
	var existing model.LessonProgress
	err := ds.db.Where("conversation_id = ?", progress.ConversationID).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		id, _ := uuid.NewV7()
		progress.ID = id.String()
		progress.CreatedAt = time.Now()
		progress.UpdatedAt = time.Now()
		if err := ds.db.Create(progress).Error; err != nil {
			return nil, err
		}
		return progress, nil
	}

	existing.LessonID = progress.LessonID
	existing.ActiveStep = progress.ActiveStep
	existing.VisibleContentIDs = progress.VisibleContentIDs
	existing.CompletedSteps = progress.CompletedSteps
	existing.CompletionPercentage = progress.CompletionPercentage
	existing.UpdatedAt = time.Now()

	if err := ds.db.Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (ds *ProgressRepository) MarkPaused(conversationID string, at time.Time) error {
	return ds.db.Model(&model.LessonProgress{}).
		Where("conversation_id = ?", conversationID).
		Updates(map[string]interface{}{
			"paused_at":  at,
			"updated_at": time.Now(),
		}).Error
}

// MarkCompleted is one write: completion timestamp, 100 percent, pause
// cleared.
func (ds *ProgressRepository) MarkCompleted(conversationID string, at time.Time) error {
	return ds.db.Model(&model.LessonProgress{}).
		Where("conversation_id = ?", conversationID).
		Updates(map[string]interface{}{
			"completed_at":          at,
			"completion_percentage": 100.0,
			"paused_at":             nil,
			"updated_at":            time.Now(),
		}).Error
}

func (ds *ProgressRepository) ClearPause(conversationID string) error {
	return ds.db.Model(&model.LessonProgress{}).
		Where("conversation_id = ?", conversationID).
		Updates(map[string]interface{}{
			"paused_at":  nil,
			"updated_at": time.Now(),
		}).Error
}

func (ds *ProgressRepository) DeleteProgress(conversationID string) error {
	return ds.db.Where("conversation_id = ?", conversationID).
		Delete(&model.LessonProgress{}).Error
}

// MarshalIDs encodes a string set for the raw JSON progress columns.
func MarshalIDs(ids []string) json.RawMessage {
	if ids == nil {
		ids = []string{}
	}
	b, _ := json.Marshal(ids)
	return b
}

// UnmarshalIDs decodes a raw JSON progress column, tolerating empty rows.
func UnmarshalIDs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return []string{}
	}
	return ids
}
