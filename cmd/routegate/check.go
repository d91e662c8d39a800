package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/routegate/routegate/pkg/domain"
	"github.com/routegate/routegate/pkg/gates"
	"github.com/routegate/routegate/pkg/logging"
	"github.com/routegate/routegate/pkg/nav"
)

var (
	flagCheckPath    string
	flagCheckOptions string
)

var checkCmd = &cobra.Command{
	Use:   "check GATE...",
	Short: "Run a gate pipeline once and print the result",
	Long: `Runs the named gates in order as a programmatic check and prints the
result as JSON. With --path the run is treated as a navigation toward that
path, which changes the shape of form denials from a form id to a redirect.

Exit status is 0 when all gates pass, 1 when a gate denies, 2 on failure.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd, args)
	},
}

func init() {
	checkCmd.Flags().StringVar(&flagCheckPath, "path", "", "Treat the check as a navigation toward this path")
	checkCmd.Flags().StringVar(&flagCheckOptions, "options", "", `Per-gate options as JSON, e.g. '{"confirm":{"form":"AddKittens"}}'`)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logCfg := logging.Config{Level: "warn", Pretty: flagPretty}
	if flagLogLevel != "" {
		logCfg.Level = flagLogLevel
	}
	logger := logging.NewLogger(logCfg)
	slog.SetDefault(logger)

	options := map[string]map[string]any{}
	if flagCheckOptions != "" {
		if err := json.Unmarshal([]byte(flagCheckOptions), &options); err != nil {
			return fmt.Errorf("parse --options: %w", err)
		}
	}

	kit, err := nav.Install(nav.InstallOptions{
		Gates:  gates.Builtin(logger),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	refs := make([]domain.GateRef, len(args))
	for i, name := range args {
		refs[i] = domain.GateRef{Name: name, Options: options[name]}
	}

	pipeline := kit.Pipeline().Configure(refs...)
	if flagCheckPath != "" {
		pipeline.SetTarget(&domain.Target{FullPath: flagCheckPath, Gates: refs})
	}

	result, err := pipeline.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")

	if result == nil {
		if err := encoder.Encode(map[string]bool{"allowed": true}); err != nil {
			return err
		}
		return nil
	}

	if err := encoder.Encode(result); err != nil {
		return err
	}
	os.Exit(1)
	return nil
}
