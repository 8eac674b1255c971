package main

import (
	"fmt"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fileconv/internal/conversion"
	"fileconv/internal/converters"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List conversion kinds and the tools they need",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := converters.NewRegistry(conversion.ExecRunner{})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tACCEPTS\tOUTPUT\tTOOL")
		for _, s := range reg.All() {
			tool := s.Invoker.Program()
			switch {
			case tool == "":
				tool = "built-in"
			case !onPath(tool):
				tool += " (missing)"
			}
			fmt.Fprintf(tw, "%s\t%s\t.%s\t%s\n", s.Kind, "."+strings.Join(s.Accept, " ."), s.OutputExt, tool)
		}
		return tw.Flush()
	},
}

func onPath(prog string) bool {
	_, err := exec.LookPath(prog)
	return err == nil
}

func init() {
	rootCmd.AddCommand(kindsCmd)
}
