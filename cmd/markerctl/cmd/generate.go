package cmd

import (
	"github.com/spf13/cobra"

	"go-nft-marker-gen/internal/preset"
	"go-nft-marker-gen/pkg/models"
)

var (
	genPreset         string
	genMinDpi         float64
	genMaxDpi         float64
	genLevels         int
	genDensity        string
	genEnhance        bool
	genContrastFactor float64
)

var generateCmd = &cobra.Command{
	Use:   "generate <image> <marker-name>",
	Short: "Generate the .iset/.fset/.fset3 files for one marker",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		genCfg, err := resolveGenerationConfig(cmd)
		if err != nil {
			return err
		}
		svc, _, err := newService()
		if err != nil {
			return err
		}
		artifact, err := svc.Generate(cmd.Context(), args[0], args[1], genCfg)
		if err != nil {
			return err
		}
		return printJSON(artifact)
	},
}

// resolveGenerationConfig layers CLI flags over a preset (when named) over
// the defaults. Only flags the user actually set override the base.
func resolveGenerationConfig(cmd *cobra.Command) (models.GenerationConfig, error) {
	base := models.DefaultGenerationConfig()
	if genPreset != "" {
		store, err := preset.Open(cfg.PresetDBPath)
		if err != nil {
			return models.GenerationConfig{}, err
		}
		defer store.Close()
		p, err := store.Get(genPreset)
		if err != nil {
			return models.GenerationConfig{}, err
		}
		base = p.Config
	}

	if cmd.Flags().Changed("min-dpi") {
		base.MinDpi = genMinDpi
	}
	if cmd.Flags().Changed("max-dpi") {
		base.MaxDpi = genMaxDpi
	}
	if cmd.Flags().Changed("levels") {
		base.Levels = genLevels
	}
	if cmd.Flags().Changed("density") {
		base.FeatureDensity = models.FeatureDensity(genDensity)
	}
	if cmd.Flags().Changed("enhance-contrast") {
		base.AutoEnhanceContrast = genEnhance
	}
	if cmd.Flags().Changed("contrast-factor") {
		base.ContrastFactor = genContrastFactor
	}
	return base, nil
}

func init() {
	generateCmd.Flags().StringVar(&genPreset, "preset", "", "named preset to start from")
	generateCmd.Flags().Float64Var(&genMinDpi, "min-dpi", 72, "lowest pyramid level dpi")
	generateCmd.Flags().Float64Var(&genMaxDpi, "max-dpi", 144, "highest pyramid level dpi")
	generateCmd.Flags().IntVar(&genLevels, "levels", 3, "pyramid level count (1-5)")
	generateCmd.Flags().StringVar(&genDensity, "density", "medium", "feature density: low, medium, or high")
	generateCmd.Flags().BoolVar(&genEnhance, "enhance-contrast", false, "boost contrast before extraction")
	generateCmd.Flags().Float64Var(&genContrastFactor, "contrast-factor", 1.0, "contrast boost factor (1.0-3.0)")
	rootCmd.AddCommand(generateCmd)
}
