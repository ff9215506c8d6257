package api

import (
	"context"
	"errors"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/apperror"
	"github.com/bobby-s-dev/weather-lookup/internal/city"
	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"github.com/bobby-s-dev/weather-lookup/internal/scheduler"
	"github.com/bobby-s-dev/weather-lookup/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WeatherService interface {
	Search(ctx context.Context, name string) (*models.SearchResult, error)
	Locate(ctx context.Context, name string) (*models.Coordinates, error)
	ClearCache() error
	Aliases() []city.Alias
	Stats() services.Stats
}

type SchedulerStatus interface {
	GetStatus() scheduler.Status
}

type Handler struct {
	service   WeatherService
	scheduler SchedulerStatus
	logger    *zap.Logger
}

// NewHandler wires the HTTP layer. sched may be nil when warm-up is disabled.
func NewHandler(service WeatherService, sched SchedulerStatus, logger *zap.Logger) *Handler {
	return &Handler{
		service:   service,
		scheduler: sched,
		logger:    logger,
	}
}

var kindStatus = map[apperror.Kind]int{
	apperror.KindInvalidInput:  fiber.StatusBadRequest,
	apperror.KindCityNotFound:  fiber.StatusNotFound,
	apperror.KindAuthInvalid:   fiber.StatusBadGateway,
	apperror.KindQuotaExceeded: fiber.StatusTooManyRequests,
	apperror.KindNetwork:       fiber.StatusGatewayTimeout,
	apperror.KindUnknown:       fiber.StatusInternalServerError,
}

// GetWeather handles GET /api/v1/weather?city=
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	name := c.Query("city")

	result, err := h.service.Search(c.Context(), name)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// GetCoordinates handles GET /api/v1/geo?city=
func (h *Handler) GetCoordinates(c *fiber.Ctx) error {
	name := c.Query("city")

	coords, err := h.service.Locate(c.Context(), name)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    coords,
	})
}

// GetCities handles GET /api/v1/cities
func (h *Handler) GetCities(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"cities":  h.service.Aliases(),
	})
}

// ClearCache handles DELETE /api/v1/cache
func (h *Handler) ClearCache(c *fiber.Ctx) error {
	if err := h.service.ClearCache(); err != nil {
		return h.writeError(c, err)
	}

	h.logger.Info("Cache cleared via API", zap.String("ip", c.IP()))
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// GetHealth handles GET /api/v1/health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(startTime).String(),
		"stats":     h.service.Stats(),
	}
	if h.scheduler != nil {
		body["scheduler"] = h.scheduler.GetStatus()
	}
	return c.JSON(body)
}

func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Classify(err, c.Query("city"))
	}

	status, ok := kindStatus[appErr.Kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}

	h.logger.Debug("Request failed",
		zap.String("path", c.Path()),
		zap.String("kind", string(appErr.Kind)),
		zap.Int("status", status),
		zap.Error(err))

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"kind":       appErr.Kind,
			"message":    appErr.Message,
			"retry_hint": appErr.RetryHint,
			"detail":     appErr.Detail,
		},
	})
}

// ErrorHandler is the fiber fallback for errors no handler rendered itself.
func ErrorHandler(c *fiber.Ctx, err error) error {
	zap.L().Error("HTTP error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))

	// Default to 500 status code
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   err.Error(),
		"success": false,
	})
}

var startTime = time.Now()
