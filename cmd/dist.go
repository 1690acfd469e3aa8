package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/deeppavlov/dreamctl/core/dist"
	"github.com/deeppavlov/dreamctl/core/distconf"
)

var distCmd = &cobra.Command{
	Use:   "dist",
	Short: "Inspect distributions",
}

var distLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List distributions in ./assistant_dists",
	RunE:  runDistLs,
}

var distServicesCmd = &cobra.Command{
	Use:   "services NAME",
	Short: "Show the pipeline services of a distribution per category",
	Args:  cobra.ExactArgs(1),
	RunE:  runDistServices,
}

func init() {
	distCmd.AddCommand(distLsCmd, distServicesCmd)
	rootCmd.AddCommand(distCmd)
}

func runDistLs(cmd *cobra.Command, args []string) error {
	if err := mustBeInsideDream(dreamRoot); err != nil {
		return err
	}
	entries, err := os.ReadDir(filepath.Join(dreamRoot, "assistant_dists"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintln(cmd.OutOrStdout(), e.Name())
		}
	}
	return nil
}

func runDistServices(cmd *cobra.Command, args []string) error {
	if err := mustBeInsideDream(dreamRoot); err != nil {
		return err
	}
	d, err := dist.FromName(args[0], dreamRoot, dist.LoadOpts{Pipeline: true})
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Category", "Service", "Host", "Port"})
	for _, cat := range d.Pipeline.Services.ByCategory() {
		names := make([]string, 0, len(cat.Services))
		for name := range cat.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			host, port, _ := distconf.ParseConnectorURL(cat.Services[name].ConnectorURL())
			t.AppendRow(table.Row{cat.Name, name, host, port})
		}
	}
	t.Render()
	return nil
}
