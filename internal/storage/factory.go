package storage

import (
	"fmt"

	"go-nft-marker-gen/internal/config"
)

// Backend identifies a storage implementation.
type Backend string

const (
	// BackendLocal stores artifacts on the local filesystem.
	BackendLocal Backend = "local"
	// BackendAzure stores artifacts in Azure blob storage.
	BackendAzure Backend = "azure"
)

// NewCollaborator creates the storage backend named in the configuration.
func NewCollaborator(cfg *config.Config) (Collaborator, error) {
	switch Backend(cfg.StorageBackend) {
	case BackendLocal:
		return NewFilesystemStorage(cfg.StorageLocalDir)
	case BackendAzure:
		return NewAzureStorage(cfg.AzureStorageAccount, cfg.AzureStorageKey, cfg.AzureStorageContainer)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend)
	}
}
