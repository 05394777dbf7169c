package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibeflow/befgen/bef"
)

// newEmitCmd is the non-interactive sibling of build: no spinner, no
// config file, artifact bytes go straight to stdout so it composes in a
// pipeline (`befc emit foo.irmsgpack | xxd`).
func newEmitCmd() *cobra.Command {
	var disableOpt bool

	cmd := &cobra.Command{
		Use:   "emit <fixture.irmsgpack>",
		Short: "Convert a fixture to BEF bytes and write them to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := decodeFixture(args[0])
			if err != nil {
				return fmt.Errorf("decode fixture: %w", err)
			}
			module, err := buildModule(fx)
			if err != nil {
				return fmt.Errorf("build module: %w", err)
			}

			artifact, diags, ok := bef.Convert(module, bef.Options{DisableOptionalSections: disableOpt})
			if !ok {
				for _, d := range diags {
					fmt.Fprintln(cmd.ErrOrStderr(), d.Error())
				}
				return fmt.Errorf("conversion failed with %d diagnostic(s)", len(diags))
			}

			_, err = cmd.OutOrStdout().Write(artifact)
			return err
		},
	}

	cmd.Flags().BoolVar(&disableOpt, "disable-optional-sections", false, "skip AttributeTypes/AttributeNames/RegisterTypes")
	return cmd
}
