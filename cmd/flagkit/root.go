package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/flagkit/pkg/client"
	"github.com/dmitrymomot/flagkit/pkg/config"
	"github.com/dmitrymomot/flagkit/pkg/httpapi"
	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// app carries what every command shares once the environment is loaded.
type app struct {
	datafile string
	logLevel string

	cfg client.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "flagkit",
		Short: "Feature flag and experiment decisions",
		Long: `flagkit decides feature flags and A/B experiments for users against a
datafile, records impressions and conversions, and serves the same
decisions over HTTP.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.datafile, "datafile", "d", "", "path to the datafile (overrides FLAGKIT_DATAFILE)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
	_ = root.RegisterFlagCompletionFunc("log-level", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newServeCmd(a),
		newDecideCmd(a),
		newVariationCmd(a),
		newBucketCmd(a),
		newValidateCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	if err := config.Load(&a.cfg); err != nil {
		return err
	}
	if a.datafile != "" {
		a.cfg.Datafile = a.datafile
	}

	var lc logger.Config
	if err := config.Load(&lc); err != nil {
		return err
	}
	if a.logLevel != "" {
		lc.Level = a.logLevel
	}
	opts, err := lc.Options()
	if err != nil {
		return err
	}
	// stdout is reserved for command output
	a.log = logger.New(append(opts,
		logger.WithOutput(cmd.ErrOrStderr()),
		logger.WithContextValue("request_id", httpapi.RequestIDContextValue),
	)...)
	return nil
}

func (a *app) readDatafile() ([]byte, error) {
	data, err := os.ReadFile(a.cfg.Datafile)
	if err != nil {
		return nil, fmt.Errorf("read datafile: %w", err)
	}
	return data, nil
}

// parseAttributes turns repeated key=value flags into user attributes.
// Values are decoded as JSON when possible, so age=30 is a number and
// beta=true a boolean; anything else stays a string.
func parseAttributes(pairs []string) (map[string]any, error) {
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid attribute %q: expected key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		attrs[key] = v
	}
	return attrs, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
