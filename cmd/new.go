package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deeppavlov/dreamctl/core/dist"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new distribution, skill or local deployment config",
}

var newDffCmd = &cobra.Command{
	Use:   "dff NAME",
	Short: "Create a new dff-based skill template in ./skills",
	Args:  cobra.ExactArgs(1),
	RunE:  runNewDff,
}

var newDistCmd = &cobra.Command{
	Use:   "dist NAME",
	Short: "Create a new distribution in ./assistant_dists from a template distribution",
	Args:  cobra.ExactArgs(1),
	RunE:  runNewDist,
}

var newLocalCmd = &cobra.Command{
	Use:   "local",
	Short: "Create a new local.yml combining dev and proxy services",
	RunE:  runNewLocal,
}

var (
	newDffDist string

	newDistTemplate  string
	newDistServices  []string
	newDistOverwrite bool
	newDistAll       bool
	newDistOpts      dist.LoadOpts

	newLocalDist          string
	newLocalServices      []string
	newLocalDropPorts     bool
	newLocalSingleReplica bool
)

func init() {
	newDffCmd.Flags().StringVarP(&newDffDist, "dist", "d", "", "Dream distribution name")
	_ = newDffCmd.MarkFlagRequired("dist")

	newDistCmd.Flags().StringVarP(&newDistTemplate, "dist", "d", "", "template distribution name")
	newDistCmd.Flags().StringSliceVarP(&newDistServices, "services", "s", nil, "service names to keep")
	newDistCmd.Flags().BoolVar(&newDistOverwrite, "overwrite", false, "overwrite an existing distribution")
	newDistCmd.Flags().BoolVar(&newDistAll, "all", false, "copy every config kind")
	newDistCmd.Flags().BoolVar(&newDistOpts.Pipeline, "pipeline", false, "copy pipeline_conf.json")
	newDistCmd.Flags().BoolVar(&newDistOpts.Override, "compose-override", false, "copy docker-compose.override.yml")
	newDistCmd.Flags().BoolVar(&newDistOpts.Dev, "compose-dev", false, "copy dev.yml")
	newDistCmd.Flags().BoolVar(&newDistOpts.Proxy, "compose-proxy", false, "copy proxy.yml")
	newDistCmd.Flags().BoolVar(&newDistOpts.Local, "compose-local", false, "copy local.yml")
	_ = newDistCmd.MarkFlagRequired("dist")

	newLocalCmd.Flags().StringVarP(&newLocalDist, "dist", "d", "", "Dream distribution name")
	newLocalCmd.Flags().StringSliceVarP(&newLocalServices, "services", "s", nil, "services to run locally")
	newLocalCmd.Flags().BoolVar(&newLocalDropPorts, "drop-ports", true, "hide port mappings of local services")
	newLocalCmd.Flags().BoolVar(&newLocalSingleReplica, "single-replica", true, "pin every service to one replica")
	_ = newLocalCmd.MarkFlagRequired("dist")

	newCmd.AddCommand(newDffCmd, newDistCmd, newLocalCmd)
	rootCmd.AddCommand(newCmd)
}

func runNewDff(cmd *cobra.Command, args []string) error {
	if err := mustBeInsideDream(dreamRoot); err != nil {
		return err
	}
	d, err := dist.FromName(newDffDist, dreamRoot, dist.LoadOpts{})
	if err != nil {
		return err
	}
	path, err := d.AddDFFSkill(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created new dff skill at %s\n", path)
	return nil
}

func runNewDist(cmd *cobra.Command, args []string) error {
	if err := mustBeInsideDream(dreamRoot); err != nil {
		return err
	}
	opts := newDistOpts
	if newDistAll {
		opts = dist.AllConfigs()
	}
	d, err := dist.FromTemplate(args[0], dreamRoot, newDistTemplate, newDistServices, opts)
	if err != nil {
		return err
	}
	paths, err := d.Save(newDistOverwrite)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created new Dream distribution %s from %s with configs: %s\n",
		args[0], newDistTemplate, strings.Join(paths, ", "))
	return nil
}

func runNewLocal(cmd *cobra.Command, args []string) error {
	if err := mustBeInsideDream(dreamRoot); err != nil {
		return err
	}
	d, err := dist.FromName(newLocalDist, dreamRoot, dist.LoadOpts{Dev: true, Proxy: true})
	if err != nil {
		return err
	}
	path, err := d.CreateLocalYML(newLocalServices, newLocalDropPorts, newLocalSingleReplica)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created new local.yml under %s\n", path)
	return nil
}
