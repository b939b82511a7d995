package main

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "testmesh.yaml"

func buildAgentsCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List configured agents and their triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAgents(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [code...]",
		Short: "Classify runner error codes into failure types",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, args)
		},
	}
}

func buildParseCmd() *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse model output into suggestions",
		Long: `Parse model output into suggestions and print them as JSON.

Reads standard input when no file (or "-") is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runParse(cmd, path, repair)
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "Repair malformed JSON before failing")
	return cmd
}

type recoverFlags struct {
	configPath  string
	pageSource  string
	screenshot  string
	message     string
	instruction string
	keywords    []string
}

func buildRecoverCmd() *cobra.Command {
	var f recoverFlags
	cmd := &cobra.Command{
		Use:   "recover [code]",
		Short: "Run the recovery path against a saved page source",
		Long: `Run the recovery path against a saved page source.

Keywords are simulated: suggested calls are printed instead of executed.
With --instruction the instruction path is used and the code is ignored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := ""
			if len(args) == 1 {
				code = args[0]
			}
			return runRecover(cmd, code, f)
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to YAML configuration file (defaults apply if empty)")
	cmd.Flags().StringVar(&f.pageSource, "page-source", "", "File holding the UI page source")
	cmd.Flags().StringVar(&f.screenshot, "screenshot", "", "Path of the screenshot taken with the page source")
	cmd.Flags().StringVar(&f.message, "message", "", "Error message reported by the runner")
	cmd.Flags().StringVar(&f.instruction, "instruction", "", "Natural-language instruction to carry out")
	cmd.Flags().StringSliceVar(&f.keywords, "keyword", []string{"press_element", "enter_text", "swipe"}, "Keywords available to the model")
	return cmd
}
