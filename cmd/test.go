package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openaddr-tools/conform-cli/internal/accept"
	"github.com/openaddr-tools/conform-cli/internal/source"
)

var (
	testLayer string
	testName  string
)

var testCmd = &cobra.Command{
	Use:   "test <source.json>",
	Short: "Run a source's embedded acceptance tests",
	Long: `Evaluates each layer source's acceptance cases against its conform
rules without touching the actual dataset. Sources without tests are
reported as skipped and do not fail the command.

Examples:
  conform-cli test sources/us/or/curry.json
  conform-cli test sources/us/or/curry.json --layer addresses --name primary`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sd, err := source.Load(args[0])
		if err != nil {
			return eris.Wrap(err, "test: load source")
		}

		failed := 0
		for layer, sources := range sd.Layers {
			if testLayer != "" && layer != testLayer {
				continue
			}
			for _, ls := range sources {
				if testName != "" && ls.Name != testName {
					continue
				}

				report := accept.Run(ls.Test, ls.Conform)
				log := zap.L().With(
					zap.String("layer", layer),
					zap.String("name", ls.Name),
				)

				switch {
				case report.Skipped:
					log.Warn("no acceptance tests")
				case report.OK():
					log.Info("acceptance tests passed",
						zap.Int("total", report.Total),
					)
				default:
					failed++
					log.Error("acceptance tests failed",
						zap.Int("passed", report.Passed),
						zap.Int("failed", report.Failed),
					)
					fmt.Fprintln(os.Stderr, report.String())
				}
			}
		}

		if failed > 0 {
			return eris.Errorf("test: %d layer source(s) failed acceptance tests", failed)
		}
		return nil
	},
}

func init() {
	testCmd.Flags().StringVar(&testLayer, "layer", "", "only test this layer")
	testCmd.Flags().StringVar(&testName, "name", "", "only test the layer source with this name")
	rootCmd.AddCommand(testCmd)
}
