// Package cmd contains all CLI commands for markerctl
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"go-nft-marker-gen/internal/analyzer"
	"go-nft-marker-gen/internal/cache"
	"go-nft-marker-gen/internal/config"
	"go-nft-marker-gen/internal/encoder"
	"go-nft-marker-gen/internal/extractor"
	"go-nft-marker-gen/internal/metrics"
	"go-nft-marker-gen/internal/service"
)

var (
	markersRoot string
	cacheDir    string
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "markerctl",
	Short: "NFT marker generation CLI",
	Long: `markerctl generates and manages NFT (natural feature tracking) markers
for WebAR from source images.

Example usage:
  markerctl analyze poster.jpg             # Score an image for trackability
  markerctl generate poster.jpg my-marker  # Produce .iset/.fset/.fset3 files
  markerctl batch img1.jpg img2.jpg        # Generate several markers at once
  markerctl preset list                    # Show saved generation presets
  markerctl gc --dry-run                   # Report unreferenced markers`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&markersRoot, "markers-root", "", "marker output directory (default: MARKERS_ROOT env)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "analysis cache directory (default: CACHE_DIR env)")
}

func initConfig() error {
	_ = godotenv.Load()

	var err error
	cfg, err = config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if markersRoot != "" {
		cfg.MarkersRoot = markersRoot
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	return nil
}

// newService builds a local engine pipeline from the effective config. The
// CLI works directly against the filesystem; no server round trip.
func newService() (service.MarkerService, *metrics.Recorder, error) {
	recorder := metrics.NewRecorder()
	analysisCache, err := cache.NewAnalysisCache(cfg.CacheTTL, cfg.CacheDir, recorder)
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewMarkerService(
		analyzer.NewQualityAnalyzer(),
		extractor.NewFeatureExtractor(),
		encoder.NewMarkerEncoder(cfg.MarkersRoot),
		analysisCache,
		recorder,
	)
	return svc, recorder, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
