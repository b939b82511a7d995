package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/testmesh"
	"github.com/hupe1980/testmesh/capability"
	"github.com/hupe1980/testmesh/config"
	"github.com/hupe1980/testmesh/logging"
	"github.com/hupe1980/testmesh/parser"
	"github.com/hupe1980/testmesh/recovery"
	"github.com/hupe1980/testmesh/screenshot"
)

const cliSession = "cli"

// runAgents handles the agents command.
func runAgents(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	names := cfg.AgentNames()
	if len(names) == 0 {
		fmt.Fprintln(out, "No agents configured.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENABLED\tTRIGGER\tPROVIDER\tMODEL\tPROMPT FILE")
	for _, name := range names {
		a := cfg.Agents[name]
		provider := a.Capability("provider")
		if provider == "" {
			provider = "openai"
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\t%s\n", name, a.Enabled, a.Trigger, provider,
			orDash(a.Capability("model")), orDash(a.PromptFile))
	}
	return w.Flush()
}

// runClassify handles the classify command.
func runClassify(cmd *cobra.Command, codes []string) error {
	out := cmd.OutOrStdout()
	for _, code := range codes {
		fmt.Fprintf(out, "%s\t%s\n", code, recovery.Classify(code))
	}
	return nil
}

type parsedSuggestion struct {
	Action   string         `json:"action"`
	Target   map[string]any `json:"target,omitempty"`
	Resolved string         `json:"resolved_target,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// runParse handles the parse command.
func runParse(cmd *cobra.Command, path string, repair bool) error {
	raw, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	p := parser.New()
	if repair {
		p = parser.New(parser.WithRepair())
	}
	suggestions, err := p.Parse(raw)
	if err != nil {
		return err
	}

	out := make([]parsedSuggestion, len(suggestions))
	for i, s := range suggestions {
		resolved, _ := parser.ResolveTarget(s.Target)
		out[i] = parsedSuggestion{Action: s.Action, Target: s.Target, Resolved: resolved, Reason: s.Reason}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// runRecover handles the recover command.
func runRecover(cmd *cobra.Command, code string, f recoverFlags) error {
	if code == "" && f.instruction == "" {
		return errors.New("either an error code or --instruction is required")
	}

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}
	cfg.Recovery.Enabled = true

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.LogFormat,
		Output:    cmd.ErrOrStderr(),
		Component: "cli",
	})

	mesh, err := testmesh.New(func(o *testmesh.Options) {
		o.Config = cfg
		o.Screenshots = screenshot.None
		o.Logger = logger
	})
	if err != nil {
		return err
	}
	defer func() { _ = mesh.Close() }()

	out := cmd.OutOrStdout()
	mesh.RegisterSession(cliSession, printingKeywords(out, f.keywords))

	var page string
	if f.pageSource != "" {
		if page, err = readInput(cmd.InOrStdin(), f.pageSource); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if f.instruction != "" {
		n, err := mesh.PerformAction(ctx, cliSession, f.instruction, page, f.screenshot)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "executed %d action(s)\n", n)
		return nil
	}

	ft := recovery.Classify(code)
	recovered := mesh.HandleError(ctx, code, f.message, recovery.ErrorContext{
		SessionID:      cliSession,
		PageSource:     page,
		ScreenshotPath: f.screenshot,
	})
	fmt.Fprintf(out, "failure type: %s\nrecovered: %t\n", ft, recovered)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Parse(nil)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func printingKeywords(out io.Writer, names []string) map[string]capability.Handler {
	handlers := make(map[string]capability.Handler, len(names))
	for _, name := range names {
		handlers[name] = capability.SyncFunc(func(_ context.Context, args []any, kwargs map[string]any) error {
			fmt.Fprintf(out, "-> %s%s\n", name, formatArgs(args, kwargs))
			return nil
		})
	}
	return handlers
}

func formatArgs(args []any, kwargs map[string]any) string {
	parts := make([]string, 0, len(args)+len(kwargs))
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%q", fmt.Sprint(a)))
	}
	for k, v := range kwargs {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
