// services/media.go
package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/cleo-edu/cleo_api/dto"
	"github.com/cleo-edu/cleo_api/shared"
)

// MediaService stores the assets content blocks reference: diagram images
// and audio narration. Objects are namespaced by lesson and block.
type MediaService struct {
	appContext.DefaultService

	minioSvc  *MinIOService
	lessonSvc *LessonService

	maxFileSize int64
}

const MEDIA_SVC = "media_svc"

const defaultMaxFileSize = 20 << 20 // 20 MiB

var allowedMediaTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/svg+xml": true,
	"image/webp":    true,
	"audio/mpeg":    true,
	"audio/wav":     true,
	"audio/ogg":     true,
}

func (svc MediaService) Id() string {
	return MEDIA_SVC
}

func (svc *MediaService) Configure(ctx *appContext.Context) error {
	svc.maxFileSize = defaultMaxFileSize
	return svc.DefaultService.Configure(ctx)
}

func (svc *MediaService) Start() error {
	svc.minioSvc = svc.Service(MINIO_SVC).(*MinIOService)
	svc.lessonSvc = svc.Service(LESSON_SVC).(*LessonService)
	return nil
}

// UploadBlockMedia validates and stores one asset for a content block, then
// records the resulting URL on the block.
func (svc *MediaService) UploadBlockMedia(lessonID, blockID string, file *multipart.FileHeader) (*dto.UploadMediaResponse, error) {
	if file.Size > svc.maxFileSize {
		return nil, shared.ErrBadRequest(fmt.Sprintf("file exceeds %d byte limit", svc.maxFileSize), nil)
	}

	contentType := file.Header.Get("Content-Type")
	if !allowedMediaTypes[contentType] {
		return nil, shared.ErrBadRequest(fmt.Sprintf("unsupported media type %s", contentType), nil)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	objectKey := fmt.Sprintf("lessons/%s/blocks/%s%s", lessonID, blockID, ext)

	url, err := svc.minioSvc.Upload(context.Background(), objectKey, src, file.Size, contentType)
	if err != nil {
		return nil, err
	}

	if err := svc.lessonSvc.SetBlockMediaURL(lessonID, blockID, url); err != nil {
		// Orphaned object, best-effort cleanup.
		if rmErr := svc.minioSvc.Remove(context.Background(), objectKey); rmErr != nil {
			log.WithError(rmErr).WithField("object_key", objectKey).Warn("Failed to remove orphaned media object")
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"lesson_id":  lessonID,
		"block_id":   blockID,
		"object_key": objectKey,
		"size":       file.Size,
	}).Info("Block media uploaded")

	return &dto.UploadMediaResponse{
		ObjectKey:   objectKey,
		URL:         url,
		ContentType: contentType,
		Size:        file.Size,
	}, nil
}
