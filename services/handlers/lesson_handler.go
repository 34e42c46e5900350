package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cleo-edu/cleo_api/dto"
	"github.com/cleo-edu/cleo_api/shared"
)

type LessonHandler struct {
	lessonSvc LessonServiceInterface
}

func NewLessonHandler(lessonSvc LessonServiceInterface) *LessonHandler {
	return &LessonHandler{
		lessonSvc: lessonSvc,
	}
}

// @Summary List Lessons
// @Description Get all active lessons with their steps and content blocks
// @Tags lessons
// @Accept json
// @Produce json
// @Success 200 {object} shared.Response{data=dto.LessonCollectionResponse}
// @Router /api/v1/lessons [get]
func (h *LessonHandler) GetLessons(c *fiber.Ctx) error {
	lessons, err := h.lessonSvc.GetLessons()
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, lessons)
}

// @Summary Get Lesson
// @Description Get one lesson with its steps and content blocks
// @Tags lessons
// @Accept json
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} shared.Response{data=dto.LessonResponse}
// @Router /api/v1/lessons/{lessonId} [get]
func (h *LessonHandler) GetLesson(c *fiber.Ctx) error {
	lessonID := c.Params("lessonId")

	lesson, err := h.lessonSvc.GetLesson(lessonID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, lesson)
}

// @Summary Create Lesson
// @Description Author a new lesson with ordered steps and typed content blocks
// @Tags lessons
// @Accept json
// @Produce json
// @Param request body dto.CreateLessonRequest true "Lesson definition"
// @Success 201 {object} shared.Response{data=dto.LessonResponse}
// @Router /api/v1/lessons [post]
func (h *LessonHandler) CreateLesson(c *fiber.Ctx) error {
	var req dto.CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := dto.GetValidator().Struct(req); err != nil {
		return shared.ResponseJSON(c, fiber.StatusBadRequest, "Validation failed", dto.FormatValidationErrors(err))
	}

	lesson, err := h.lessonSvc.CreateLesson(req)
	if err != nil {
		return err
	}

	return shared.ResponseCreated(c, lesson)
}

// @Summary Add Step
// @Description Append a step to a lesson; order must exceed every existing step
// @Tags lessons
// @Accept json
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Param request body dto.CreateStepRequest true "Step definition"
// @Success 201 {object} shared.Response{data=dto.StepResponse}
// @Router /api/v1/lessons/{lessonId}/steps [post]
func (h *LessonHandler) AddStep(c *fiber.Ctx) error {
	lessonID := c.Params("lessonId")

	var req dto.CreateStepRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := dto.GetValidator().Struct(req); err != nil {
		return shared.ResponseJSON(c, fiber.StatusBadRequest, "Validation failed", dto.FormatValidationErrors(err))
	}

	step, err := h.lessonSvc.AddStep(lessonID, req)
	if err != nil {
		return err
	}

	return shared.ResponseCreated(c, step)
}

// @Summary Upsert Content Block
// @Description Insert or update one content block of a lesson
// @Tags lessons
// @Accept json
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Param request body dto.CreateContentBlockRequest true "Block definition"
// @Success 200 {object} shared.Response{data=model.ContentBlock}
// @Router /api/v1/lessons/{lessonId}/blocks [put]
func (h *LessonHandler) UpsertBlock(c *fiber.Ctx) error {
	lessonID := c.Params("lessonId")

	var req dto.CreateContentBlockRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := dto.GetValidator().Struct(req); err != nil {
		return shared.ResponseJSON(c, fiber.StatusBadRequest, "Validation failed", dto.FormatValidationErrors(err))
	}

	block, err := h.lessonSvc.UpsertBlock(lessonID, req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, block)
}

// @Summary Delete Lesson
// @Description Deactivate a lesson so it no longer appears in the catalog
// @Tags lessons
// @Accept json
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} shared.Response
// @Router /api/v1/lessons/{lessonId} [delete]
func (h *LessonHandler) DeleteLesson(c *fiber.Ctx) error {
	lessonID := c.Params("lessonId")

	if err := h.lessonSvc.DeleteLesson(lessonID); err != nil {
		return err
	}

	return shared.ResponseOK(c, nil)
}
