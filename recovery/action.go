package recovery

import (
	"context"
	"errors"

	"github.com/hupe1980/testmesh/capability"
	"github.com/hupe1980/testmesh/model"
)

// ActionAgent names the instruction path in logs and transcripts.
const ActionAgent = "ai_action"

// ActionHandler turns natural-language instructions into keyword calls.
type ActionHandler struct {
	*advisor
}

// NewActionHandler creates an ActionHandler that executes suggestions through keywords.
func NewActionHandler(inference model.Inference, keywords map[string]capability.Handler, optFns ...func(o *Options)) *ActionHandler {
	return &ActionHandler{advisor: newAdvisor(ActionAgent, inference, keywords, optFns)}
}

// Perform asks the model how to carry out instruction on the screen described
// by pageSource and executes every suggestion naming a known keyword, in
// order. Unknown or failing suggestions are logged and skipped. It returns the
// number of suggestions executed successfully; the error is non-nil when the
// model could not be consulted or nothing was executed.
func (a *ActionHandler) Perform(ctx context.Context, instruction, pageSource, screenshotPath string) (int, error) {
	if instruction == "" {
		return 0, errors.New("empty instruction")
	}
	log := []any{"instruction", instruction, "screenshot", screenshotPath}

	ui := FlattenPageSource(pageSource, a.opts.IncludeInvisible)
	suggestions, err := a.suggest(ctx, "", "ai_action", InstructionPrompt(instruction, ui))
	if err != nil {
		a.logger.Error("recovery.action.inference_failed", append(log, "error", err.Error())...)
		return 0, err
	}

	executed := 0
	for _, s := range suggestions {
		if err := a.invoke(ctx, s); err != nil {
			a.logger.Warn("recovery.action.skipped", append(log, "action", s.Action, "error", err.Error())...)
			continue
		}
		a.logger.Info("recovery.action.executed", append(log, "action", s.Action, "reason", s.Reason)...)
		executed++
	}
	if executed == 0 {
		return 0, ErrNoSuggestion
	}
	return executed, nil
}
