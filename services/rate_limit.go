// services/rate_limit.go
package services

import (
	"fmt"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/cleo-edu/cleo_api/shared"
)

// RateLimitService enforces per-client fixed windows on the endpoint
// groups that take writes: driver event ingestion and catalog authoring.
type RateLimitService struct {
	appContext.DefaultService

	configs map[string]*RateLimitConfig
	windows map[string]*rateWindow
	mutex   sync.Mutex

	closed chan struct{}
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	EndpointType string
	MaxRequests  int
	WindowSize   time.Duration
	Description  string
}

type rateWindow struct {
	count     int
	expiresAt time.Time
}

const RATE_LIMIT_SVC = "rate_limit_svc"

const (
	EndpointEvents    = "events"
	EndpointAuthoring = "authoring"
)

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *appContext.Context) error {
	svc.configs = map[string]*RateLimitConfig{
		EndpointEvents: {
			EndpointType: EndpointEvents,
			MaxRequests:  120,
			WindowSize:   time.Minute,
			Description:  "Driver content event pushes",
		},
		EndpointAuthoring: {
			EndpointType: EndpointAuthoring,
			MaxRequests:  30,
			WindowSize:   time.Minute,
			Description:  "Lesson catalog writes",
		},
	}
	svc.windows = make(map[string]*rateWindow)
	svc.closed = make(chan struct{})

	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	go svc.startCleanupJob()
	return nil
}

func (svc *RateLimitService) Shutdown() {
	close(svc.closed)
}

// Limit returns fiber middleware for the given endpoint type.
func (svc *RateLimitService) Limit(endpointType string) fiber.Handler {
	config, ok := svc.configs[endpointType]
	if !ok {
		// Unconfigured endpoint types pass through.
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("%s:%s", endpointType, c.IP())

		if !svc.allow(key, config) {
			log.WithFields(log.Fields{
				"endpoint_type": endpointType,
				"client_ip":     c.IP(),
			}).Warn("Rate limit exceeded")
			return shared.NewAppError(fiber.StatusTooManyRequests, "Too Many Requests", nil)
		}
		return c.Next()
	}
}

func (svc *RateLimitService) allow(key string, config *RateLimitConfig) bool {
	now := time.Now()

	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	window, ok := svc.windows[key]
	if !ok || now.After(window.expiresAt) {
		svc.windows[key] = &rateWindow{count: 1, expiresAt: now.Add(config.WindowSize)}
		return true
	}

	if window.count >= config.MaxRequests {
		return false
	}
	window.count++
	return true
}

func (svc *RateLimitService) startCleanupJob() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-svc.closed:
			return
		case <-ticker.C:
			svc.cleanupExpired()
		}
	}
}

func (svc *RateLimitService) cleanupExpired() {
	now := time.Now()

	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	for key, window := range svc.windows {
		if now.After(window.expiresAt) {
			delete(svc.windows, key)
		}
	}
}
