package app

import (
	"errors"
	"runtime"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ReferencePath string
	// GraphSpecPaths are explicitly listed graph description files, in
	// claim order.
	GraphSpecPaths []string
	// GraphDir, when set, is scanned recursively for additional *.json
	// graph specs, appended to GraphSpecPaths in sorted order.
	GraphDir     string
	ManifestPath string

	GenotypingParameterPath string

	OutputFilePath   string // "-" = stdout
	OutputFolderPath string
	GzipOutput       bool
	OrderedOutput    bool

	AlignerCommand   string
	GenotyperCommand string

	SampleThreads int
	Progress      bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates and normalizes a Config. Missing required inputs are
// caught here, before any run state is built.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ReferencePath == "" {
		return nil, errors.New("reference genome path is missing")
	}
	if cfg.ManifestPath == "" {
		return nil, errors.New("manifest file is missing")
	}

	// Default to the combined stdout stream when no sink was chosen.
	if cfg.OutputFilePath == "" && cfg.OutputFolderPath == "" {
		cfg.OutputFilePath = "-"
	}

	if cfg.SampleThreads < 1 {
		cfg.SampleThreads = runtime.NumCPU()
	}

	return &cfg, nil
}
