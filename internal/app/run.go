package app

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/grmgo/internal/ctxlog"
	"github.com/vk/grmgo/internal/fsutil"
	"github.com/vk/grmgo/internal/graphspec"
	"github.com/vk/grmgo/internal/manifest"
	"github.com/vk/grmgo/internal/workflow"
)

// Run executes the full application lifecycle: input validation, manifest
// and graph spec loading, then the two-phase workflow. A non-nil error
// means the run failed, including when any worker set the termination flag.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	a.logger.Info("Reference path.", "path", a.config.ReferencePath)
	if err := assertFileExists(a.config.ReferencePath); err != nil {
		return err
	}

	graphPaths, err := a.collectGraphSpecPaths()
	if err != nil {
		return err
	}
	for _, path := range graphPaths {
		if err := assertFileExists(path); err != nil {
			return err
		}
	}

	graphs, err := graphspec.Load(ctx, graphPaths)
	if err != nil {
		return err
	}
	if a.config.OutputFolderPath != "" {
		// Folder mode writes one file per graph named after its input file.
		if err := graphspec.CheckUniqueFileNames(graphs); err != nil {
			return err
		}
	}

	a.logger.Info("Manifest path.", "path", a.config.ManifestPath)
	samples, err := manifest.Load(ctx, a.config.ManifestPath)
	if err != nil {
		return err
	}

	wf, err := workflow.New(workflow.Config{
		ReferencePath:           a.config.ReferencePath,
		GenotypingParameterPath: a.config.GenotypingParameterPath,
		OutputFilePath:          a.config.OutputFilePath,
		OutputFolderPath:        a.config.OutputFolderPath,
		GzipOutput:              a.config.GzipOutput,
		SampleThreads:           a.config.SampleThreads,
		OrderedOutput:           a.config.OrderedOutput,
		Progress:                a.config.Progress,
	}, graphs, samples, a.aligner, a.genotyper, a.outW)
	if err != nil {
		return err
	}

	a.logger.Info("🚀 Starting two-phase run.", "samples", len(samples), "graphs", len(graphs), "sample_threads", a.config.SampleThreads)
	if err := wf.Run(ctx); err != nil {
		return err
	}
	a.logger.Info("🏁 Run finished.")
	return nil
}

// collectGraphSpecPaths merges explicitly listed graph specs with the ones
// discovered under GraphDir, preserving the explicit order first.
func (a *App) collectGraphSpecPaths() ([]string, error) {
	paths := append([]string(nil), a.config.GraphSpecPaths...)

	if a.config.GraphDir != "" {
		found, err := fsutil.FindFilesByExtension(a.config.GraphDir, ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to scan graph dir %s: %w", a.config.GraphDir, err)
		}
		a.logger.Debug("Discovered graph specs.", "dir", a.config.GraphDir, "count", len(found))
		paths = append(paths, found...)
	}

	return paths, nil
}

// assertFileExists mirrors the input checks the original workflow performs
// before starting any phase.
func assertFileExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("input file %s is not accessible: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input file %s is a directory", path)
	}
	return nil
}
