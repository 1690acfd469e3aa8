package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deeppavlov/dreamctl/core/dist"
	"github.com/deeppavlov/dreamctl/core/distconf"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a distribution's configuration documents",
}

var verifyDistCmd = &cobra.Command{
	Use:   "dist NAME",
	Short: "Parse every present config of a distribution and report the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerifyDist,
}

func init() {
	verifyCmd.AddCommand(verifyDistCmd)
	rootCmd.AddCommand(verifyCmd)
}

func runVerifyDist(cmd *cobra.Command, args []string) error {
	if err := mustBeInsideDream(dreamRoot); err != nil {
		return err
	}
	distPath, _, _, err := dist.ResolveAllPaths("", args[0], dreamRoot)
	if err != nil {
		return err
	}

	kinds := []distconf.Kind{
		distconf.KindPipeline,
		distconf.KindComposeOverride,
		distconf.KindComposeDev,
		distconf.KindComposeProxy,
		distconf.KindComposeLocal,
	}
	broken := 0
	for _, kind := range kinds {
		if kind == distconf.KindPipeline {
			_, err = distconf.PipelineFromDist(distPath)
		} else {
			_, err = distconf.ComposeFromDist(kind, distPath)
		}
		switch {
		case err == nil:
			fmt.Fprintf(cmd.OutOrStdout(), "%-30s ok\n", kind.FileName())
		case errors.Is(err, distconf.ErrNotFound):
			fmt.Fprintf(cmd.OutOrStdout(), "%-30s absent\n", kind.FileName())
		default:
			broken++
			log.Warnf("%s: %v", kind.FileName(), err)
			fmt.Fprintf(cmd.OutOrStdout(), "%-30s %v\n", kind.FileName(), err)
		}
	}
	if broken > 0 {
		return fmt.Errorf("%d config(s) failed to parse", broken)
	}
	return nil
}
