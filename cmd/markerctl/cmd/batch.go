package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"go-nft-marker-gen/internal/batch"
)

var batchWorkers int

var batchCmd = &cobra.Command{
	Use:   "batch <image>...",
	Short: "Generate markers for several images at once",
	Long: `Generates one marker per image across a bounded worker pool. Each
marker is named after its image file; one image failing does not stop the
others. Flags from "generate" select the shared config.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		genCfg, err := resolveGenerationConfig(cmd)
		if err != nil {
			return err
		}
		svc, _, err := newService()
		if err != nil {
			return err
		}

		jobs := make([]batch.Job, 0, len(args))
		for _, path := range args {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			jobs = append(jobs, batch.Job{ImagePath: path, MarkerName: name})
		}

		coordinator := batch.NewCoordinator(svc.Generate,
			batch.WithJobTimeout(cfg.JobTimeout))
		results, stats, err := coordinator.Run(cmd.Context(), jobs, genCfg, batchWorkers)
		if err != nil {
			return err
		}

		type item struct {
			ImagePath string `json:"image_path"`
			Marker    string `json:"marker,omitempty"`
			Error     string `json:"error,omitempty"`
		}
		out := struct {
			Items []item      `json:"items"`
			Stats batch.Stats `json:"stats"`
		}{Stats: stats}
		for _, job := range jobs {
			res := results[job.ImagePath]
			it := item{ImagePath: job.ImagePath}
			if res.Err != nil {
				it.Error = res.Err.Error()
			} else {
				it.Marker = res.Artifact.MarkerName
			}
			out.Items = append(out.Items, it)
		}
		return printJSON(out)
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4, "worker pool size (1-8)")
	batchCmd.Flags().StringVar(&genPreset, "preset", "", "named preset to start from")
	batchCmd.Flags().Float64Var(&genMinDpi, "min-dpi", 72, "lowest pyramid level dpi")
	batchCmd.Flags().Float64Var(&genMaxDpi, "max-dpi", 144, "highest pyramid level dpi")
	batchCmd.Flags().IntVar(&genLevels, "levels", 3, "pyramid level count (1-5)")
	batchCmd.Flags().StringVar(&genDensity, "density", "medium", "feature density: low, medium, or high")
	batchCmd.Flags().BoolVar(&genEnhance, "enhance-contrast", false, "boost contrast before extraction")
	batchCmd.Flags().Float64Var(&genContrastFactor, "contrast-factor", 1.0, "contrast boost factor (1.0-3.0)")
	rootCmd.AddCommand(batchCmd)
}
