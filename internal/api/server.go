// Package api serves the extract, review and fill steps over HTTP.
package api

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/insightdelivered/bill-to-quote/internal/extractor"
	"github.com/insightdelivered/bill-to-quote/internal/pipeline"
	"github.com/insightdelivered/bill-to-quote/internal/review"
	"github.com/insightdelivered/bill-to-quote/internal/writer"
)

const requestIDKey = "requestid"

// Options configures the fiber app.
type Options struct {
	BodyLimitMB int
	StaticDir   string
}

// NewApp builds the fiber app with middleware and routes.
func NewApp(h *Handler, opts Options) *fiber.App {
	bodyLimit := opts.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 32
	}

	app := fiber.New(fiber.Config{
		AppName:               "bill-to-quote",
		BodyLimit:             bodyLimit << 20,
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	app.Use(h.logRequests)

	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/extract", h.HandleExtract)
	app.Post("/api/fill", h.HandleFill)
	app.Post("/api/convert", h.HandleConvert)

	if opts.StaticDir != "" {
		dir := opts.StaticDir
		app.Static("/", dir)
		// SPA: unknown non-API paths get index.html
		app.Get("/*", func(c *fiber.Ctx) error {
			if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
				return fiber.ErrNotFound
			}
			return c.SendFile(filepath.Join(dir, "index.html"))
		})
	}

	return app
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

func (h *Handler) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	h.logger.Info().
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("request")
	return err
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch {
	case eris.Is(err, extractor.ErrUnsupportedDocument):
		return fiber.StatusUnsupportedMediaType
	case eris.Is(err, extractor.ErrUnreadableDocument),
		eris.Is(err, review.ErrMalformedRecord),
		eris.Is(err, writer.ErrTooManyLines),
		eris.Is(err, writer.ErrSheetNotFound):
		return fiber.StatusUnprocessableEntity
	case eris.Is(err, pipeline.ErrTemplateNotFound):
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error().Err(err).Str("request_id", requestID(c)).Msg("request failed")
	}
	return c.Status(status).JSON(ErrorResponse{Success: false, Error: err.Error()})
}
