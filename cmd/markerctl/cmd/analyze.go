package cmd

import (
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Score a source image for trackability",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		analysis, err := svc.AnalyzeFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(analysis)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
