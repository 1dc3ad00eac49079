package api

import (
	"net/http"
	"strings"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/usecase"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatusEchoHandler exposes the engine's run state and on-demand context
// builds over HTTP.
type StatusEchoHandler struct {
	logger    *xlogger.Logger
	ledger    domrepo.Ledger
	contexts  domrepo.ContextSource
	scheduler *usecase.Scheduler
}

func NewStatusEchoHandler(logger *xlogger.Logger, ledger domrepo.Ledger, contexts domrepo.ContextSource, scheduler *usecase.Scheduler) *StatusEchoHandler {
	return &StatusEchoHandler{logger: logger, ledger: ledger, contexts: contexts, scheduler: scheduler}
}

func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/symbols", h.Symbols)
	g.GET("/context/:symbol", h.Context)
	g.GET("/prediction/:symbol", h.Prediction)
	g.POST("/symbols", h.AddSymbol)
}

// Health reports whether the ledger answers a lightweight read.
func (h *StatusEchoHandler) Health(c echo.Context) error {
	if err := h.ledger.Health(c.Request().Context()); err != nil {
		h.logger.Error("health check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("ledger unreachable"))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Status returns the most recent run summary plus the current ledger health.
func (h *StatusEchoHandler) Status(c echo.Context) error {
	ledgerStatus := "ok"
	if err := h.ledger.Health(c.Request().Context()); err != nil {
		ledgerStatus = "unreachable"
	}

	summary := h.scheduler.LastSummary()
	if summary == nil {
		return xhttp.DataResponse(c, http.StatusOK, map[string]interface{}{
			"status": "waiting for first run",
			"ledger": ledgerStatus,
		})
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"ledger":   ledgerStatus,
		"last_run": summary,
	})
}

// Symbols lists the symbols registered on the contract.
func (h *StatusEchoHandler) Symbols(c echo.Context) error {
	symbols, err := h.ledger.ListSymbols(c.Request().Context())
	if err != nil {
		h.logger.Error("symbol listing failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, symbols)
}

// Context builds and returns a market context on demand. Degraded upstream
// data still yields a 200 with error blocks inside, same as a scheduled run.
func (h *StatusEchoHandler) Context(c echo.Context) error {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol is required")
	}
	mc := h.contexts.Build(c.Request().Context(), symbol)
	return xhttp.SuccessResponse(c, mc)
}

// Prediction returns the latest stored forecast for one symbol/timeframe slot.
func (h *StatusEchoHandler) Prediction(c echo.Context) error {
	req := &models.PredictionQueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	record, err := h.ledger.LatestPrediction(c.Request().Context(), symbol, models.Timeframe(req.Timeframe))
	if err != nil {
		h.logger.Error("prediction lookup failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if record == nil {
		return xhttp.NotFoundResponse(c, "no prediction recorded for this slot")
	}
	return xhttp.SuccessResponse(c, record)
}

// AddSymbol registers a new symbol on the contract. The write waits for the
// transaction receipt, so this can take several seconds.
func (h *StatusEchoHandler) AddSymbol(c echo.Context) error {
	req := &models.AddSymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	result, err := h.ledger.AddSymbol(c.Request().Context(), req.Symbol, req.Description)
	if err != nil {
		h.logger.Error("symbol registration failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, result)
}
