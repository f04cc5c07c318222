package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openaddr-tools/conform-cli/internal/accept"
	"github.com/openaddr-tools/conform-cli/internal/conform"
	"github.com/openaddr-tools/conform-cli/internal/decode"
	"github.com/openaddr-tools/conform-cli/internal/source"
	"github.com/openaddr-tools/conform-cli/internal/store"
	"github.com/openaddr-tools/conform-cli/internal/writer"
)

var (
	processSource      string
	processData        string
	processLayer       string
	processName        string
	processOutput      string
	processConcurrency int
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert a dataset to the canonical output schema",
	Long: `Runs the full conversion for one layer source: validates the source
definition, gates on its embedded acceptance tests, decodes the data file,
applies the conform rules to every row, and writes the fixed-column CSV.

The acceptance tests must pass before any data is converted. Sources
without tests proceed but are recorded as untested.

Examples:
  conform-cli process --source sources/us/or/curry.json --data cache/curry/
  conform-cli process --source city.json --data city.geojson --name primary`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sd, err := source.Load(processSource)
		if err != nil {
			return eris.Wrap(err, "process: load source")
		}

		ls, err := selectLayerSource(sd, processLayer, processName)
		if err != nil {
			return err
		}
		log := zap.L().With(
			zap.String("source", processSource),
			zap.String("layer", processLayer),
			zap.String("name", ls.Name),
		)

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "process: open store")
		}
		defer st.Close() //nolint:errcheck

		// Acceptance gate. Conversion never starts on a failing source.
		report := accept.Run(ls.Test, ls.Conform)
		testsPassed := reportTestsPassed(report)
		if !report.OK() {
			fmt.Fprintln(os.Stderr, report.String())
			recordRun(ctx, st, ls, store.RunStatusTestsFailed, testsPassed, 0, "")
			return eris.Errorf("process: %d/%d acceptance tests failed", report.Failed, report.Total)
		}
		if report.Skipped {
			log.Warn("no acceptance tests, converting unverified")
		} else {
			log.Info("acceptance tests passed", zap.Int("total", report.Total))
		}

		dataPath, err := resolveDataPath(ls.Conform, processData)
		if err != nil {
			recordRun(ctx, st, ls, store.RunStatusFailed, testsPassed, 0, "")
			return eris.Wrap(err, "process: locate data file")
		}

		outPath := processOutput
		if outPath == "" {
			outPath = defaultOutputPath(processSource, processLayer, ls.Name)
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return eris.Wrap(err, "process: create output dir")
		}

		concurrency := processConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Process.Concurrency
		}

		rows, convErr := convert(ctx, ls, dataPath, outPath, concurrency)
		if convErr != nil {
			recordRun(ctx, st, ls, store.RunStatusFailed, testsPassed, rows, "")
			return eris.Wrap(convErr, "process: convert")
		}

		recordRun(ctx, st, ls, store.RunStatusCompleted, testsPassed, rows, outPath)
		log.Info("conversion complete",
			zap.Int("rows", rows),
			zap.String("output", outPath),
		)
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processSource, "source", "", "path to the source definition JSON (required)")
	processCmd.Flags().StringVar(&processData, "data", "", "path to the extracted data file or directory (required)")
	processCmd.Flags().StringVar(&processLayer, "layer", "addresses", "layer to convert")
	processCmd.Flags().StringVar(&processName, "name", "", "layer source name (defaults when the layer has exactly one)")
	processCmd.Flags().StringVar(&processOutput, "output", "", "output CSV path (default: derived under output dir)")
	processCmd.Flags().IntVar(&processConcurrency, "concurrency", 0, "conform worker count (0 = config default)")
	_ = processCmd.MarkFlagRequired("source")
	_ = processCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(processCmd)
}

// convert streams decoded rows through the conform workers into the output
// file and returns the row count.
func convert(ctx context.Context, ls *source.LayerSource, dataPath, outPath string, concurrency int) (int, error) {
	r, err := decode.Open(ls, dataPath)
	if err != nil {
		return 0, err
	}
	defer r.Close() //nolint:errcheck

	w, err := writer.NewCSV(outPath)
	if err != nil {
		return 0, err
	}

	// Sources without a fingerprint get a per-run one so hashes never
	// collide across unrelated datasets.
	fingerprint := ls.Fingerprint
	if fingerprint == "" {
		fingerprint = uuid.New().String()
	}

	asm := conform.NewAssembler(ls.Conform, fingerprint)
	rows, err := conform.ConvertAll(ctx, asm, r, concurrency, w.Write)
	if err != nil {
		_ = w.Close()
		_ = os.Remove(outPath)
		return rows, err
	}
	if err := w.Close(); err != nil {
		return rows, err
	}

	stats := w.Stats()
	for col, n := range stats.Empty {
		if n == stats.Rows && stats.Rows > 0 {
			zap.L().Warn("column empty for every row", zap.String("column", col))
		}
	}
	return rows, nil
}

// selectLayerSource picks the layer source to convert, defaulting when the
// layer holds exactly one.
func selectLayerSource(sd *source.SourceDefinition, layer, name string) (*source.LayerSource, error) {
	sources, ok := sd.Layers[layer]
	if !ok || len(sources) == 0 {
		return nil, eris.Errorf("process: source has no %q layer", layer)
	}

	if name == "" {
		if len(sources) > 1 {
			names := make([]string, len(sources))
			for i, ls := range sources {
				names[i] = ls.Name
			}
			return nil, eris.Errorf("process: layer %q has %d sources (%s), pick one with --name",
				layer, len(sources), strings.Join(names, ", "))
		}
		return &sources[0], nil
	}

	ls, ok := sd.Find(layer, name)
	if !ok {
		return nil, eris.Errorf("process: layer %q has no source named %q", layer, name)
	}
	return ls, nil
}

// resolveDataPath accepts the data file itself, a zip archive of it, or a
// directory of already-extracted archive contents.
func resolveDataPath(cs source.ConformSpec, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		if strings.EqualFold(filepath.Ext(path), ".zip") {
			dir, err := os.MkdirTemp("", "conform-extract-")
			if err != nil {
				return "", err
			}
			files, err := decode.ExtractZip(path, dir)
			if err != nil {
				return "", err
			}
			return decode.FindSourcePath(cs, files)
		}
		return path, nil
	}

	var files []string
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if walkErr != nil {
		return "", walkErr
	}
	return decode.FindSourcePath(cs, files)
}

// defaultOutputPath derives out/<source>-<layer>[-<name>].csv.
func defaultOutputPath(srcPath, layer, name string) string {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	parts := []string{base, layer}
	if name != "" && name != "primary" {
		parts = append(parts, name)
	}
	return filepath.Join(cfg.Output.Dir, strings.Join(parts, "-")+".csv")
}

func reportTestsPassed(report accept.Report) *bool {
	if report.Skipped {
		return nil
	}
	ok := report.OK()
	return &ok
}

// recordRun persists the run outcome; storage failures are logged, not fatal,
// so the conversion result is never lost to bookkeeping.
func recordRun(ctx context.Context, st store.Store, ls *source.LayerSource, status store.RunStatus, testsPassed *bool, rows int, outPath string) {
	run := store.Run{
		Source:      processSource,
		Layer:       processLayer,
		LayerSource: ls.Name,
		Status:      status,
		TestsPassed: testsPassed,
		Rows:        rows,
		OutputPath:  outPath,
	}
	if err := st.RecordRun(ctx, run); err != nil {
		zap.L().Error("process: record run", zap.Error(err))
	}
}
