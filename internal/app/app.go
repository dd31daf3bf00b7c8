package app

import (
	"io"
	"log/slog"

	"github.com/vk/grmgo/internal/toolchain"
	"github.com/vk/grmgo/internal/workflow"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle. The record stream (outW) and the diagnostic stream (logW) are
// kept separate so a stdout combined sink never interleaves with logs.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	aligner   workflow.Aligner
	genotyper workflow.Genotyper
}

// NewApp is the constructor for the main application. Passing nil for
// either collaborator selects the production subprocess wrapper; tests
// inject fakes instead.
func NewApp(outW, logW io.Writer, config *Config, aligner workflow.Aligner, genotyper workflow.Genotyper) *App {
	logger := newLogger(config, logW)
	logger.Debug("Logger configured successfully.")

	if aligner == nil {
		aligner = &toolchain.ExecAligner{Command: config.AlignerCommand}
	}
	if genotyper == nil {
		genotyper = &toolchain.ExecGenotyper{Command: config.GenotyperCommand}
	}

	return &App{
		outW:      outW,
		logger:    logger,
		config:    config,
		aligner:   aligner,
		genotyper: genotyper,
	}
}

// Logger returns the application's logger. This is primarily for testing.
func (a *App) Logger() *slog.Logger {
	return a.logger
}
