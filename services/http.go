package services

import (
	"fmt"
	"os"
	"strconv"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/cleo-edu/cleo_api/services/handlers"
	"github.com/cleo-edu/cleo_api/shared"
)

type HttpService struct {
	appContext.DefaultService

	lessonSvc    *LessonService
	syncSvc      *SyncService
	mediaSvc     *MediaService
	rateLimitSvc *RateLimitService

	lessonHandler *handlers.LessonHandler
	syncHandler   *handlers.SyncHandler
	mediaHandler  *handlers.MediaHandler

	port   int
	server *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *appContext.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.lessonSvc = svc.Service(LESSON_SVC).(*LessonService)
	svc.syncSvc = svc.Service(SYNC_SVC).(*SyncService)
	svc.mediaSvc = svc.Service(MEDIA_SVC).(*MediaService)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)

	svc.lessonHandler = handlers.NewLessonHandler(svc.lessonSvc)
	svc.syncHandler = handlers.NewSyncHandler(svc.syncSvc)
	svc.mediaHandler = handlers.NewMediaHandler(svc.mediaSvc)

	app := fiber.New(fiber.Config{
		AppName:      SERVICE_NAME,
		ErrorHandler: svc.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders: "Content-Length",
	}))

	app.Get("/ping", svc.ping)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", svc.ping)

	authoring := svc.rateLimitSvc.Limit(EndpointAuthoring)
	events := svc.rateLimitSvc.Limit(EndpointEvents)

	lessons := v1.Group("/lessons")
	lessons.Get("", svc.lessonHandler.GetLessons)
	lessons.Get("/:lessonId", svc.lessonHandler.GetLesson)
	lessons.Post("", authoring, svc.lessonHandler.CreateLesson)
	lessons.Post("/:lessonId/steps", authoring, svc.lessonHandler.AddStep)
	lessons.Put("/:lessonId/blocks", authoring, svc.lessonHandler.UpsertBlock)
	lessons.Post("/:lessonId/blocks/:blockId/media", authoring, svc.mediaHandler.UploadBlockMedia)
	lessons.Delete("/:lessonId", authoring, svc.lessonHandler.DeleteLesson)

	conversations := v1.Group("/conversations/:conversationId")
	conversations.Post("/session", svc.syncHandler.StartSession)
	conversations.Delete("/session", svc.syncHandler.EndSession)
	conversations.Post("/events", events, svc.syncHandler.PushEvent)
	conversations.Post("/content/:contentId/show", events, svc.syncHandler.ShowContent)
	conversations.Get("/state", svc.syncHandler.GetState)
	conversations.Post("/pause", svc.syncHandler.Pause)
	conversations.Post("/resume", svc.syncHandler.Resume)
	conversations.Post("/complete", svc.syncHandler.Complete)
	conversations.Get("/progress", svc.syncHandler.GetProgress)
	conversations.Delete("/progress", svc.syncHandler.ClearProgress)

	app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseNotFound(c)
	})

	svc.server = app

	log.WithField("port", svc.port).Info("http server listening")
	return app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", "pong")
}

func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	if fiberErr, isFiber := err.(*fiber.Error); isFiber {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.WithError(err).Error("request failed")
	return shared.ResponseInternalError(c, err)
}
