package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"
	"tlog.app/go/tlog"

	"github.com/vibeflow/befgen/bef"
)

// newBuildCmd wires the msgpack fixture decoder to bef.Pipeline, printing
// a per-phase spinner (progress.go) and, on failure, every diagnostic the
// collector accumulated rather than stopping at the first.
func newBuildCmd() *cobra.Command {
	var (
		outPath    string
		cfgPath    string
		disableOpt bool
	)

	cmd := &cobra.Command{
		Use:   "build <fixture.irmsgpack>",
		Short: "Decode a fixture, run the collect/pools/functions pipeline, and write a .bef artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("disable-optional-sections") {
				cfg.DisableOptionalSections = disableOpt
			}

			fx, err := decodeFixture(args[0])
			if err != nil {
				return fmt.Errorf("decode fixture: %w", err)
			}
			tlog.SpanFromContext(ctx).Printw("decoded fixture", "path", args[0], "funcs", len(fx.Funcs))

			module, err := buildModule(fx)
			if err != nil {
				return fmt.Errorf("build module: %w", err)
			}

			opts := bef.Options{DisableOptionalSections: cfg.DisableOptionalSections}
			pipeline := bef.NewPipeline(module, opts)

			if !runWithProgress(pipeline, cfg.UseColor) {
				for _, d := range pipeline.Diagnostics() {
					fmt.Fprintln(cmd.ErrOrStderr(), d.Error())
				}
				return fmt.Errorf("conversion failed with %d diagnostic(s)", len(pipeline.Diagnostics()))
			}

			artifact := pipeline.Artifact()
			if outPath == "" {
				outPath = args[0] + ".bef"
			}
			if err := writeArtifact(outPath, artifact); err != nil {
				return err
			}
			tlog.SpanFromContext(ctx).Printw("wrote artifact", "path", outPath, "bytes", len(artifact))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default: <fixture>.bef)")
	cmd.Flags().StringVar(&cfgPath, "config", ".befc.toml", "config file path")
	cmd.Flags().BoolVar(&disableOpt, "disable-optional-sections", false, "skip AttributeTypes/AttributeNames/RegisterTypes")

	return cmd
}

func decodeFixture(path string) (*fixtureModule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx fixtureModule
	if err := msgpack.Unmarshal(raw, &fx); err != nil {
		return nil, err
	}
	return &fx, nil
}

func writeArtifact(path string, artifact []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(artifact); err != nil {
		return err
	}
	return fsyncFile(f)
}
