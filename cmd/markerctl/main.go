package main

import (
	"os"

	"go-nft-marker-gen/cmd/markerctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
