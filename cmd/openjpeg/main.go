// Command openjpeg inspects and decodes JPEG 2000 files.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	openjpeg "github.com/ajroetker/go-openjpeg"
	"github.com/ajroetker/go-openjpeg/internal/config"
)

// app carries state shared by all subcommands.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "openjpeg",
		Short: "Inspect and decode JPEG 2000 files",
		Long: `openjpeg reads the XML metadata box of JP2 files, reports their
container structure, and decodes pixels through libopenjp2.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath(), "path to YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newXMLCmd(a),
		newInfoCmd(a),
		newDecodeCmd(a),
		newVersionCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	zcfg := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	if a.verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	a.logger.Debug("config loaded", zap.String("path", a.configPath))
	return nil
}

// format returns the --format flag if set, else the configured default.
func (a *app) format(flag string) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	return a.cfg.Output.Format
}

// encode writes v to w as JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(finiteJSON(v))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

// finiteJSON replaces NaN and ±Inf in XML dicts with their string form.
// encoding/json rejects non-finite floats.
func finiteJSON(v any) any {
	switch v := v.(type) {
	case openjpeg.Dict:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = finiteJSON(e)
		}
		return out
	case []openjpeg.Dict:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = finiteJSON(e)
		}
		return out
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	return v
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
