package api

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/bill-to-quote/internal/models"
	"github.com/insightdelivered/bill-to-quote/internal/pipeline"
	"github.com/insightdelivered/bill-to-quote/internal/review"
	"github.com/insightdelivered/bill-to-quote/internal/writer"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExtractResponse is the JSON response from /api/extract.
type ExtractResponse struct {
	Success  bool                `json:"success"`
	Source   string              `json:"source"`
	Method   string              `json:"method"`
	Headers  models.HeaderFields `json:"headers"`
	Lines    []models.UsageLine  `json:"lines"`
	Count    int                 `json:"count"`
	RawText  string              `json:"rawText,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	pipeline     *pipeline.Pipeline
	templatePath string
	version      string
	logger       zerolog.Logger
}

// NewHandler returns handlers backed by p. templatePath is the quote template
// used when a request does not upload one.
func NewHandler(p *pipeline.Pipeline, templatePath, version string, logger zerolog.Logger) *Handler {
	return &Handler{
		pipeline:     p,
		templatePath: templatePath,
		version:      version,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.version,
	})
}

// HandleExtract reads the uploaded bill and returns its header fields and
// usage lines for review. When no lines were found a few blank rows are
// returned so there is something to edit; count still reports zero.
func (h *Handler) HandleExtract(c *fiber.Ctx) error {
	name, data, err := formFile(c, "file", true)
	if err != nil {
		return err
	}

	bill, err := h.pipeline.Extract(c.UserContext(), name, data)
	if err != nil {
		return err
	}

	return c.JSON(ExtractResponse{
		Success:  true,
		Source:   bill.Source,
		Method:   bill.Method,
		Headers:  bill.Headers,
		Lines:    review.EditableLines(bill.Lines),
		Count:    len(bill.Lines),
		RawText:  bill.Text,
		Warnings: bill.Warnings,
	})
}

// HandleFill writes reviewed headers and lines into the quote template.
func (h *Handler) HandleFill(c *fiber.Ctx) error {
	headers, err := review.DecodeHeaders([]byte(c.FormValue("headers")))
	if err != nil {
		return err
	}
	lines, err := review.DecodeLines([]byte(c.FormValue("lines")))
	if err != nil {
		return err
	}

	template, err := h.template(c)
	if err != nil {
		return err
	}

	out, err := h.pipeline.Fill(template, headers, lines)
	if err != nil {
		return err
	}
	return sendWorkbook(c, out)
}

// HandleConvert extracts the uploaded bill and fills the template in one step.
func (h *Handler) HandleConvert(c *fiber.Ctx) error {
	name, data, err := formFile(c, "file", true)
	if err != nil {
		return err
	}
	template, err := h.template(c)
	if err != nil {
		return err
	}

	bill, out, err := h.pipeline.Convert(c.UserContext(), name, data, template)
	if err != nil {
		return err
	}
	c.Set("X-Extraction-Method", bill.Method)
	return sendWorkbook(c, out)
}

func (h *Handler) template(c *fiber.Ctx) ([]byte, error) {
	_, uploaded, err := formFile(c, "template", false)
	if err != nil {
		return nil, err
	}
	return pipeline.LoadTemplate(uploaded, h.templatePath)
}

// formFile reads an uploaded file. A missing optional file yields no data and
// no error.
func formFile(c *fiber.Ctx, field string, required bool) (string, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if required {
			return "", nil, fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field '"+field+"'.")
		}
		return "", nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return "", nil, eris.Wrapf(err, "failed to open upload %q", fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, eris.Wrapf(err, "failed to read upload %q", fh.Filename)
	}
	return fh.Filename, data, nil
}

func sendWorkbook(c *fiber.Ctx, data []byte) error {
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Attachment(writer.OutputFileName)
	return c.Send(data)
}
