package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-nft-marker-gen/internal/preset"
	"go-nft-marker-gen/pkg/models"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage named generation presets",
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := preset.Open(cfg.PresetDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		presets, err := store.List()
		if err != nil {
			return err
		}
		if presets == nil {
			presets = []preset.Preset{}
		}
		return printJSON(presets)
	},
}

var presetGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show one preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := preset.Open(cfg.PresetDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		p, err := store.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save or overwrite a preset from flags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := preset.Open(cfg.PresetDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		saveCfg := models.GenerationConfig{
			MinDpi:              genMinDpi,
			MaxDpi:              genMaxDpi,
			Levels:              genLevels,
			FeatureDensity:      models.FeatureDensity(genDensity),
			AutoEnhanceContrast: genEnhance,
			ContrastFactor:      genContrastFactor,
		}
		if err := store.Save(args[0], saveCfg); err != nil {
			return err
		}
		fmt.Printf("Preset %q saved\n", args[0])
		return nil
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := preset.Open(cfg.PresetDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Preset %q deleted\n", args[0])
		return nil
	},
}

func init() {
	presetSaveCmd.Flags().Float64Var(&genMinDpi, "min-dpi", 72, "lowest pyramid level dpi")
	presetSaveCmd.Flags().Float64Var(&genMaxDpi, "max-dpi", 144, "highest pyramid level dpi")
	presetSaveCmd.Flags().IntVar(&genLevels, "levels", 3, "pyramid level count (1-5)")
	presetSaveCmd.Flags().StringVar(&genDensity, "density", "medium", "feature density: low, medium, or high")
	presetSaveCmd.Flags().BoolVar(&genEnhance, "enhance-contrast", false, "boost contrast before extraction")
	presetSaveCmd.Flags().Float64Var(&genContrastFactor, "contrast-factor", 1.0, "contrast boost factor (1.0-3.0)")

	presetCmd.AddCommand(presetListCmd, presetGetCmd, presetSaveCmd, presetDeleteCmd)
	rootCmd.AddCommand(presetCmd)
}
