package services

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	MONITORING_SVC          = "monitoring_svc"
	SERVICE_NAME            = "cleo_api"
	DEFAULT_PROMETHEUS_PORT = 2112
)

// Sync engine metrics
var (
	eventsAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_events_applied_total",
			Help: "Total content events applied, by event type",
		},
		[]string{"type"},
	)

	unknownReferenceTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "content_events_unknown_reference_total",
			Help: "Events referencing steps or blocks not yet in the catalog",
		},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lesson_sessions_active",
			Help: "Live lesson sessions",
		},
	)
)

// Progress persistence metrics
var (
	progressSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_saves_total",
			Help: "Persisted progress writes, by mode",
		},
		[]string{"mode"},
	)

	progressSaveFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_save_failures_total",
			Help: "Progress writes that failed and were swallowed",
		},
	)

	debounceCoalescedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_debounce_coalesced_total",
			Help: "Debounced saves replaced by a newer payload before flushing",
		},
	)
)

// Catalog cache metrics
var (
	lessonCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lesson_cache_hits_total",
			Help: "Lesson catalog reads served from Redis",
		},
	)

	lessonCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lesson_cache_misses_total",
			Help: "Lesson catalog reads that fell through to the database",
		},
	)
)

// System metrics
var (
	heapAllocBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "heap_alloc_bytes",
			Help: "Heap memory allocated in bytes",
		},
	)

	heapSysBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "heap_sys_bytes",
			Help: "Heap memory obtained from system in bytes",
		},
	)

	gcTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gc_total",
			Help: "Total number of garbage collections",
		},
	)
)

func recordEventApplied(eventType string) {
	eventsAppliedTotal.WithLabelValues(eventType).Inc()
}

func recordUnknownReference() {
	unknownReferenceTotal.Inc()
}

func recordSessionCount(count int) {
	sessionsActive.Set(float64(count))
}

func recordProgressSave(mode string) {
	progressSavesTotal.WithLabelValues(mode).Inc()
}

func recordSaveFailure() {
	progressSaveFailuresTotal.Inc()
}

func recordDebounceCoalesced() {
	debounceCoalescedTotal.Inc()
}

func recordCacheHit() {
	lessonCacheHitsTotal.Inc()
}

func recordCacheMiss() {
	lessonCacheMissesTotal.Inc()
}

type MonitoringService struct {
	appContext.DefaultService

	port     int
	register *prometheus.Registry

	closed      chan struct{}
	server      *fiber.App
	lastGCCount uint32
}

func (svc *MonitoringService) Id() string {
	return MONITORING_SVC
}

func (svc *MonitoringService) Start() error {
	svc.closed = make(chan struct{}, 1)

	portStr := os.Getenv("PROMETHEUS_PORT")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = DEFAULT_PROMETHEUS_PORT
	}
	svc.port = port

	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	reg.MustRegister(
		eventsAppliedTotal,
		unknownReferenceTotal,
		sessionsActive,
		progressSavesTotal,
		progressSaveFailuresTotal,
		debounceCoalescedTotal,
		lessonCacheHitsTotal,
		lessonCacheMissesTotal,
		heapAllocBytes,
		heapSysBytes,
		gcTotal,
	)

	svc.register = reg

	go svc.updateMemoryMetrics()

	config := fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
		},
	}

	svc.server = fiber.New(config)
	svc.server.Use(recover.New())

	svc.server.Get("/metrics", svc.metricsHandler)
	svc.server.Get("/health", svc.healthHandler)

	go func() {
		if err := svc.server.Listen(fmt.Sprintf(":%v", svc.port)); err != nil {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()

	log.WithField("port", svc.port).Info("Prometheus metrics server started")
	return nil
}

func (svc *MonitoringService) Shutdown() {
	svc.closed <- struct{}{}
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

func (svc *MonitoringService) metricsHandler(c *fiber.Ctx) error {
	handler := promhttp.HandlerFor(svc.register, promhttp.HandlerOpts{})
	return adaptor.HTTPHandler(handler)(c)
}

func (svc *MonitoringService) healthHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":    "healthy",
		"service":   SERVICE_NAME,
		"timestamp": time.Now().Unix(),
	})
}

// updateMemoryMetrics refreshes runtime gauges every 15 seconds.
func (svc *MonitoringService) updateMemoryMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-svc.closed:
			return
		case <-ticker.C:
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)

			heapAllocBytes.Set(float64(stats.HeapAlloc))
			heapSysBytes.Set(float64(stats.HeapSys))

			if gcCount := uint32(stats.NumGC); gcCount > svc.lastGCCount {
				gcTotal.Add(float64(gcCount - svc.lastGCCount))
				svc.lastGCCount = gcCount
			}
		}
	}
}
