package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cleo-edu/cleo_api/dto"
	"github.com/cleo-edu/cleo_api/shared"
)

type SyncHandler struct {
	syncSvc SyncServiceInterface
}

func NewSyncHandler(syncSvc SyncServiceInterface) *SyncHandler {
	return &SyncHandler{
		syncSvc: syncSvc,
	}
}

// @Summary Start Session
// @Description Start (or resume) the live lesson session for a conversation
// @Tags sync
// @Accept json
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Param request body dto.StartSessionRequest true "Lesson to run"
// @Success 200 {object} shared.Response{data=dto.SyncStateResponse}
// @Router /api/v1/conversations/{conversationId}/session [post]
func (h *SyncHandler) StartSession(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	var req dto.StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := dto.GetValidator().Struct(req); err != nil {
		return shared.ResponseJSON(c, fiber.StatusBadRequest, "Validation failed", dto.FormatValidationErrors(err))
	}

	state, err := h.syncSvc.StartSession(conversationID, req.LessonID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, state)
}

// @Summary Push Content Event
// @Description Apply one driver event (move_to_step, show_content, complete_step, upsert_content, lesson_complete)
// @Tags sync
// @Accept json
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Param request body dto.ContentEventRequest true "Event envelope"
// @Success 200 {object} shared.Response{data=dto.SyncStateResponse}
// @Router /api/v1/conversations/{conversationId}/events [post]
func (h *SyncHandler) PushEvent(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	state, err := h.syncSvc.HandleRawEvent(conversationID, c.Body())
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, state)
}

// @Summary Show Content
// @Description Reveal one content block imperatively (learner-triggered)
// @Tags sync
// @Accept json
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Param contentId path string true "Content block ID"
// @Success 200 {object} shared.Response{data=dto.SyncStateResponse}
// @Router /api/v1/conversations/{conversationId}/content/{contentId}/show [post]
func (h *SyncHandler) ShowContent(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")
	contentID := c.Params("contentId")

	state, err := h.syncSvc.ShowContent(conversationID, contentID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, state)
}

// @Summary Get Sync State
// @Description Current live state triple for a conversation
// @Tags sync
// @Accept json
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Success 200 {object} shared.Response{data=dto.SyncStateResponse}
// @Router /api/v1/conversations/{conversationId}/state [get]
func (h *SyncHandler) GetState(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	state, err := h.syncSvc.GetState(conversationID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, state)
}

// @Summary Pause Session
// @Description Persist a pause timestamp immediately
// @Tags sync
// @Accept json
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Success 200 {object} shared.Response
// @Router /api/v1/conversations/{conversationId}/pause [post]
func (h *SyncHandler) Pause(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	if err := h.syncSvc.Pause(conversationID); err != nil {
		return err
	}

	return shared.ResponseOK(c, nil)
}

// @Summary Resume Session
// @Description Clear the pause timestamp, leaving all progress untouched
// @Tags sync
// @Accept json
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Success 200 {object} shared.Response{data=dto.SyncStateResponse}
// @Router /api/v1/conversations/{conversationId}/resume [post]
func (h *SyncHandler) Resume(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	state, err := h.syncSvc.Resume(conversationID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, state)
}

// @Summary Complete Lesson
// @Description Mark every step completed and write the terminal progress row
// @Tags sync
// @Accept json
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Success 200 {object} shared.Response{data=dto.SyncStateResponse}
// @Router /api/v1/conversations/{conversationId}/complete [post]
func (h *SyncHandler) Complete(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	state, err := h.syncSvc.Complete(conversationID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, state)
}

// @Summary End Session
// @Description Tear down the live session; a pending debounced save is dropped
// @Tags sync
// @Accept json
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Success 200 {object} shared.Response
// @Router /api/v1/conversations/{conversationId}/session [delete]
func (h *SyncHandler) EndSession(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	h.syncSvc.EndSession(conversationID)

	return shared.ResponseOK(c, nil)
}

// @Summary Get Progress
// @Description Last persisted progress snapshot for a conversation
// @Tags sync
// @Accept json
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Success 200 {object} shared.Response{data=dto.ProgressResponse}
// @Router /api/v1/conversations/{conversationId}/progress [get]
func (h *SyncHandler) GetProgress(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	progress, err := h.syncSvc.GetProgress(conversationID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, progress)
}

// @Summary Clear Progress
// @Description Delete the persisted snapshot and end any live session
// @Tags sync
// @Accept json
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Success 200 {object} shared.Response
// @Router /api/v1/conversations/{conversationId}/progress [delete]
func (h *SyncHandler) ClearProgress(c *fiber.Ctx) error {
	conversationID := c.Params("conversationId")

	if err := h.syncSvc.ClearProgress(conversationID); err != nil {
		return err
	}

	return shared.ResponseOK(c, nil)
}
