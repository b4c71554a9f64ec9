package httpapi

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/air-quality-dashboard/internal/airquality"
)

var validate = validator.New()

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Loader is what the routes need from the load state machine.
type Loader interface {
	Start(parent context.Context, timeout time.Duration) airquality.LoadState
	States() airquality.StateStore
}

// Options holds route dependencies.
type Options struct {
	// BasePath prefixes every dashboard route, e.g. "/air-quality".
	BasePath string
	Loader   Loader
	Defaults airquality.SeriesSelection
	// BaseContext parents manual reloads; cancel it on shutdown.
	BaseContext   context.Context
	ReloadTimeout time.Duration
}

type dashboard struct {
	basePath      string
	loader        Loader
	defaults      airquality.SeriesSelection
	baseCtx       context.Context
	reloadTimeout time.Duration
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, opts Options) {
	h := &dashboard{
		basePath:      opts.BasePath,
		loader:        opts.Loader,
		defaults:      opts.Defaults,
		baseCtx:       opts.BaseContext,
		reloadTimeout: opts.ReloadTimeout,
	}
	if h.baseCtx == nil {
		h.baseCtx = context.Background()
	}
	if h.reloadTimeout <= 0 {
		h.reloadTimeout = 30 * time.Second
	}
	if h.defaults.Primary == "" || h.defaults.Secondary == "" {
		h.defaults = airquality.DefaultSeriesSelection
	}

	app.Get("/health", h.health)

	base := app.Group(opts.BasePath)
	base.Get("/", h.index)
	base.Post("/reload", h.reloadForm)

	v1 := base.Group("/api/v1")
	v1.Get("/airquality", h.state)
	v1.Post("/airquality/reload", h.reload)
}

// ErrorHandler renders errors as JSON. Only *fiber.Error messages reach the
// client; anything else becomes a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	} else {
		zap.L().Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// RequestLogger logs each request through zap.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		zap.L().Info("http request", fields...)
		return err
	}
}

type dashboardPage struct {
	BasePath     string
	Loading      bool
	Failed       bool
	Message      string
	Selection    airquality.SeriesSelection
	View         *airquality.ViewModel
	Chart        forecastChart
	ForecastKeys []string
}

func (h *dashboard) index(c *fiber.Ctx) error {
	sel, err := h.selection(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid forecast series selection")
	}

	st := h.loader.States().Current()
	page := dashboardPage{
		BasePath:  h.basePath,
		Selection: sel,
	}
	switch st.Phase {
	case airquality.PhaseReady:
		vm := airquality.Assemble(*st.Snapshot, sel)
		page.View = &vm
		page.Chart = buildForecastChart(vm)
		page.ForecastKeys = vm.ForecastKeys
	case airquality.PhaseFailed:
		page.Failed = true
		page.Message = st.Message
	default:
		page.Loading = true
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "dashboard.html", page); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

type stateResponse struct {
	Phase      string                `json:"phase"`
	Generation uint64                `json:"generation"`
	Message    string                `json:"message,omitempty"`
	View       *airquality.ViewModel `json:"view,omitempty"`
}

func (h *dashboard) state(c *fiber.Ctx) error {
	sel, err := h.selection(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid forecast series selection")
	}

	st := h.loader.States().Current()
	resp := stateResponse{
		Phase:      st.Phase.String(),
		Generation: st.Generation,
	}
	switch st.Phase {
	case airquality.PhaseReady:
		vm := airquality.Assemble(*st.Snapshot, sel)
		resp.View = &vm
	case airquality.PhaseFailed:
		resp.Message = st.Message
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

func (h *dashboard) reload(c *fiber.Ctx) error {
	st := h.startReload()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":     "accepted",
		"generation": st.Generation,
	})
}

func (h *dashboard) reloadForm(c *fiber.Ctx) error {
	h.startReload()
	return c.Redirect(h.basePath+"/", fiber.StatusSeeOther)
}

// startReload begins a new load sequence before the response is written, so
// the next read already sees Loading. A sequence still in flight keeps
// running, but its result is discarded by the store.
func (h *dashboard) startReload() airquality.LoadState {
	return h.loader.Start(h.baseCtx, h.reloadTimeout)
}

func (h *dashboard) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "air-quality-dashboard",
		"load":    h.loader.States().Current().Phase.String(),
	})
}

func (h *dashboard) selection(c *fiber.Ctx) (airquality.SeriesSelection, error) {
	sel := airquality.SeriesSelection{
		Primary:   c.Query("primary", h.defaults.Primary),
		Secondary: c.Query("secondary", h.defaults.Secondary),
	}
	if err := validate.Struct(sel); err != nil {
		return sel, err
	}
	return sel, nil
}
