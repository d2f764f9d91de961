package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureStorage implements Collaborator on an Azure blob container.
type AzureStorage struct {
	client    *azblob.Client
	container string
}

// NewAzureStorage creates an Azure collaborator using shared-key credentials.
func NewAzureStorage(accountName, accountKey, container string) (*AzureStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("creating azure client: %w", err)
	}

	return &AzureStorage{client: client, container: container}, nil
}

// Put uploads data as a blob and returns its URL.
func (s *AzureStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	if _, err := s.client.UploadBuffer(ctx, s.container, key, data, nil); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return fmt.Sprintf("%s%s/%s", s.client.URL(), s.container, key), nil
}

// Get downloads a blob's contents.
func (s *AzureStorage) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	return buf.Bytes(), nil
}

// Delete removes a blob, reporting whether it existed.
func (s *AzureStorage) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.client.DeleteBlob(ctx, s.container, key, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete failed: %w", err)
	}
	return true, nil
}

// Exists reports whether a blob is stored under the key.
func (s *AzureStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.ServiceClient().
		NewContainerClient(s.container).
		NewBlobClient(key).
		GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat failed: %w", err)
	}
	return true, nil
}
