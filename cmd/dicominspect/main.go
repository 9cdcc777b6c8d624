package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"golang.org/x/term"

	"github.com/quantarax/dicompreview/internal/config"
	"github.com/quantarax/dicompreview/internal/observability"
	"github.com/quantarax/dicompreview/internal/pipeline"
)

const (
	exitOK = iota
	exitUsage
	exitInput
	exitDecode
	exitOutput
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dicominspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", ".env", "Environment file to load before reading config")
	cfgPath := fs.String("config", "", "Config file (yaml, json or toml)")
	pretty := fs.Bool("pretty", isTerminal(stdout), "Pretty-print JSON output (default: on for terminals)")
	output := fs.String("output", "", "Write JSON to file (default: stdout)")
	previewDir := fs.String("previews", "", "Directory to write preview frames as .jpg")
	maxDepth := fs.Int("max-depth", -1, "Sequence nesting cap, 0 for unlimited (default: from config)")
	bestEffort := fs.Bool("best-effort", false, "Keep frames that rendered when another frame fails")
	dumpMetrics := fs.Bool("metrics", false, "Print Prometheus metrics to stderr after parsing")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: dicominspect [options] <file_path>")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
		return exitUsage
	}
	filePath := fs.Arg(0)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "Warning: could not load %s: %v\n", *envFile, err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return exitUsage
	}
	if *maxDepth >= 0 {
		cfg.Tree.MaxDepth = *maxDepth
	}
	if *bestEffort {
		cfg.Preview.Policy = config.PolicyBestEffort
	}

	ctx := context.Background()
	shutdown, err := observability.InitTracing(ctx, cfg.Service.Name)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: tracing disabled: %v\n", err)
	} else {
		defer shutdown(ctx)
	}

	logger := observability.NewLogger(cfg.Service.Name, cfg.Service.Version, stderr).SetLevel(cfg.Log.Level)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	parser := pipeline.New(cfg, pipeline.WithLogger(logger), pipeline.WithMetrics(metrics))
	res, err := parser.ParseFile(ctx, filePath)
	if *dumpMetrics {
		defer writeMetrics(stderr, registry)
	}
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		var perr *pipeline.Error
		if errors.As(err, &perr) && perr.Kind == pipeline.KindInput {
			return exitInput
		}
		if errors.As(err, &perr) && perr.Kind == pipeline.KindDecode {
			return exitDecode
		}
		return exitOutput
	}

	jsonData := res.JSON
	if *pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, res.JSON, "", "  "); err == nil {
			jsonData = buf.Bytes()
		}
	}

	if *previewDir != "" {
		if err := writePreviews(*previewDir, res.Output.PreviewImages); err != nil {
			fmt.Fprintf(stderr, "Error writing previews: %v\n", err)
			return exitOutput
		}
		fmt.Fprintf(stderr, "Previews written: %d\n", len(res.Output.PreviewImages))
	}

	if *output != "" {
		if err := os.WriteFile(*output, jsonData, 0644); err != nil {
			fmt.Fprintf(stderr, "Error writing to file: %v\n", err)
			return exitOutput
		}
		fmt.Fprintf(stderr, "Result written to: %s\n", *output)
		return exitOK
	}
	fmt.Fprintln(stdout, string(jsonData))
	return exitOK
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writePreviews decodes each base64 frame into dir/frame_NNN.jpg.
func writePreviews(dir string, frames []string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i, b64 := range frames {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("frame_%03d.jpg", i))
		if err := os.WriteFile(name, data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		fmt.Fprintf(w, "Error gathering metrics: %v\n", err)
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return
		}
	}
}
