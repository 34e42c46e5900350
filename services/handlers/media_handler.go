package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cleo-edu/cleo_api/shared"
)

type MediaHandler struct {
	mediaSvc MediaServiceInterface
}

func NewMediaHandler(mediaSvc MediaServiceInterface) *MediaHandler {
	return &MediaHandler{
		mediaSvc: mediaSvc,
	}
}

// @Summary Upload Block Media
// @Description Attach an image, audio or video file to a content block
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Param blockId path string true "Content block ID"
// @Param file formData file true "Media file"
// @Success 200 {object} shared.Response{data=dto.UploadMediaResponse}
// @Router /api/v1/lessons/{lessonId}/blocks/{blockId}/media [post]
func (h *MediaHandler) UploadBlockMedia(c *fiber.Ctx) error {
	lessonID := c.Params("lessonId")
	blockID := c.Params("blockId")

	file, err := c.FormFile("file")
	if err != nil {
		return shared.ResponseBadRequest(c, "Missing file")
	}

	result, err := h.mediaSvc.UploadBlockMedia(lessonID, blockID, file)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, result)
}
