package recovery

import (
	"context"
	"time"

	"github.com/hupe1980/testmesh/capability"
	"github.com/hupe1980/testmesh/logging"
	"github.com/hupe1980/testmesh/metrics"
	"github.com/hupe1980/testmesh/model"
)

// PopupAgent names the popup recovery path in logs and transcripts.
const PopupAgent = "popup_handler"

// ErrorContext carries the screen state at the time of a failure.
type ErrorContext struct {
	SessionID      string
	PageSource     string
	ScreenshotPath string
}

// Handler attempts recovery from runner failures.
type Handler struct {
	*advisor
}

// NewHandler creates a Handler that executes suggestions through keywords.
func NewHandler(inference model.Inference, keywords map[string]capability.Handler, optFns ...func(o *Options)) *Handler {
	return &Handler{advisor: newAdvisor(PopupAgent, inference, keywords, optFns)}
}

// HandleError classifies code and, for screen popups with a page source,
// asks the model how to get past the screen. The first suggestion naming a
// known keyword is executed. It reports whether that execution succeeded;
// every failure along the way yields false.
func (h *Handler) HandleError(ctx context.Context, code, message string, ec ErrorContext) (recovered bool) {
	ft := Classify(code)
	start := time.Now()
	log := []any{"error_code", code, "failure_type", string(ft), "session_id", ec.SessionID, "screenshot", ec.ScreenshotPath}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("recovery.panic", append(log, "panic", r)...)
			h.opts.Metrics.IncRecovery(string(ft), metrics.OutcomePanic)
			recovered = false
		}
		if sl, ok := h.logger.(*logging.StructuredLogger); ok && ft == ScreenPopup && ec.PageSource != "" {
			sl.WithSession(ec.SessionID).LogRecovery(code, string(ft), recovered, time.Since(start))
		}
	}()

	if ft != ScreenPopup {
		h.logger.Info("recovery.unhandled", append(log, "message", message)...)
		h.opts.Metrics.IncRecovery(string(ft), metrics.OutcomeSkipped)
		return false
	}
	if ec.PageSource == "" {
		h.logger.Warn("recovery.no_page_source", log...)
		h.opts.Metrics.IncRecovery(string(ft), metrics.OutcomeSkipped)
		return false
	}

	ui := FlattenPageSource(ec.PageSource, h.opts.IncludeInvisible)
	suggestions, err := h.suggest(ctx, ec.SessionID, code, PopupPrompt(ui))
	if err != nil {
		h.logger.Error("recovery.inference.failed", append(log, "error", err.Error())...)
		h.opts.Metrics.IncRecovery(string(ft), metrics.OutcomeFailed)
		return false
	}

	for _, s := range suggestions {
		if _, ok := h.keyword(s.Action); !ok {
			h.logger.Warn("recovery.keyword.unknown", append(log, "action", s.Action)...)
			continue
		}
		if err := h.invoke(ctx, s); err != nil {
			h.logger.Error("recovery.keyword.failed", append(log, "action", s.Action, "error", err.Error())...)
			h.opts.Metrics.IncRecovery(string(ft), metrics.OutcomeFailed)
			return false
		}
		h.logger.Info("recovery.succeeded", append(log, "action", s.Action, "reason", s.Reason,
			"duration_ms", time.Since(start).Milliseconds())...)
		h.opts.Metrics.IncRecovery(string(ft), metrics.OutcomeRecovered)
		return true
	}

	h.logger.Warn("recovery.no_suggestion", append(log, "suggestions", len(suggestions))...)
	h.opts.Metrics.IncRecovery(string(ft), metrics.OutcomeFailed)
	return false
}
