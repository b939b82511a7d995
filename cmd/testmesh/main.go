// Package main provides the testmesh CLI for inspecting agent configuration
// and exercising the recovery path outside a test run.
//
// # Basic Usage
//
// List the configured agents and their triggers:
//
//	testmesh agents --config testmesh.yaml
//
// Classify a runner error code:
//
//	testmesh classify E0201_modal_blocking
//
// Parse captured model output:
//
//	testmesh parse response.txt
//
// Ask the recovery model how to get past a screen:
//
//	testmesh recover E0201 --page-source page.xml --config testmesh.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "testmesh",
		Short: "testmesh - LLM agents reacting to UI test runner events",
		Long: `testmesh runs language-model-backed agents when UI test steps fail and
executes their suggestions through the runner's keywords.

Supported providers: OpenAI, Ollama (OpenAI-compatible), Anthropic`,
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildAgentsCmd(),
		buildClassifyCmd(),
		buildParseCmd(),
		buildRecoverCmd(),
	)
	return rootCmd
}
