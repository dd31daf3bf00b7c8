// Package cli parses command-line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/grmgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList collects the values of a repeatable flag in order.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("grmgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
grmgo - graph genotyping workflow runner.

Aligns every sample against every graph, then genotypes each graph over the
aligned samples, streaming result records as they complete.

Usage:
  grmgo -r <reference> -m <manifest> [-g <graph.json> ...] [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	var graphSpecs stringList
	referenceFlag := flagSet.String("reference", "", "Reference genome fasta file.")
	rFlag := flagSet.String("r", "", "Reference genome fasta file (shorthand).")
	flagSet.Var(&graphSpecs, "graph-spec", "JSON file describing a graph. Repeatable; order fixes graph indices.")
	flagSet.Var(&graphSpecs, "g", "JSON file describing a graph (shorthand). Repeatable.")
	graphDirFlag := flagSet.String("graph-dir", "", "Directory scanned recursively for *.json graph specs, appended after -g entries.")
	manifestFlag := flagSet.String("manifest", "", "Manifest of samples with paths and optional pre-computed alignments.")
	mFlag := flagSet.String("m", "", "Manifest of samples (shorthand).")
	paramsFlag := flagSet.String("genotyping-parameters", "", "JSON file with genotyping model parameters.")
	bigGFlag := flagSet.String("G", "", "JSON file with genotyping model parameters (shorthand).")
	outputFileFlag := flagSet.String("output-file", "", "Combined output file name. '-' or omitted writes to stdout.")
	oFlag := flagSet.String("o", "", "Combined output file name (shorthand).")
	outputFolderFlag := flagSet.String("output-folder", "", "Output folder path; one file per graph, named after the input graph spec file.")
	bigOFlag := flagSet.String("O", "", "Output folder path (shorthand).")
	alignerFlag := flagSet.String("aligner", "", "External single-sample aligner binary.")
	genotyperFlag := flagSet.String("genotyper", "", "External genotyper binary.")
	gzipFlag := flagSet.Bool("gzip-output", false, "gzip-compress output files. Folder-mode file names are appended with .gz.")
	zFlag := flagSet.Bool("z", false, "gzip-compress output files (shorthand).")
	orderedFlag := flagSet.Bool("ordered-output", false, "Buffer combined-stream records back into graph index order. Default streams in completion order.")
	threadsFlag := flagSet.Int("sample-threads", 0, "Number of worker threads per phase. 0 uses all CPUs.")
	tFlag := flagSet.Int("t", 0, "Number of worker threads per phase (shorthand).")
	progressFlag := flagSet.Bool("progress", true, "Log per-item progress.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected positional argument: %q", flagSet.Arg(0))}
	}

	reference := firstNonEmpty(*referenceFlag, *rFlag)
	manifestPath := firstNonEmpty(*manifestFlag, *mFlag)
	outputFile := firstNonEmpty(*outputFileFlag, *oFlag)
	outputFolder := firstNonEmpty(*outputFolderFlag, *bigOFlag)
	params := firstNonEmpty(*paramsFlag, *bigGFlag)
	threads := *threadsFlag
	if threads == 0 {
		threads = *tFlag
	}

	if reference == "" || manifestPath == "" {
		flagSet.Usage()
		return nil, false, &ExitError{Code: 2, Message: "both a reference (-r) and a manifest (-m) are required"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ReferencePath:           reference,
		GraphSpecPaths:          graphSpecs,
		GraphDir:                *graphDirFlag,
		ManifestPath:            manifestPath,
		GenotypingParameterPath: params,
		OutputFilePath:          outputFile,
		OutputFolderPath:        outputFolder,
		GzipOutput:              *gzipFlag || *zFlag,
		OrderedOutput:           *orderedFlag,
		AlignerCommand:          *alignerFlag,
		GenotyperCommand:        *genotyperFlag,
		SampleThreads:           threads,
		Progress:                *progressFlag,
		LogFormat:               logFormat,
		LogLevel:                logLevel,
		HealthcheckPort:         *healthPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
