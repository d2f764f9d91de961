package cmd

import (
	"github.com/spf13/cobra"

	"go-nft-marker-gen/internal/gc"
	"go-nft-marker-gen/internal/repository"
)

var (
	gcDryRun bool
	gcInUse  []string
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete markers no longer referenced by the content registry",
	Long: `Reconciles the markers root against the content registry and removes
unreferenced marker directories. With CONTENT_REGISTRY_URL unset, only the
names passed via --in-use are treated as referenced.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var contentRepo repository.ContentRepository
		if cfg.ContentRegistryURL != "" {
			contentRepo = repository.NewHTTPContentRepository(cfg.ContentRegistryURL)
		} else {
			contentRepo = repository.NewStaticContentRepository(gcInUse...)
		}

		collector := gc.NewCollector(cfg.MarkersRoot, contentRepo)
		report, err := collector.Run(cmd.Context(), gcDryRun)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

func init() {
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "report what would be deleted without deleting")
	gcCmd.Flags().StringSliceVar(&gcInUse, "in-use", nil, "marker names to keep when no registry is configured")
	rootCmd.AddCommand(gcCmd)
}
