package objectstore

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

const contentTypeWAV = "audio/wav"

// AzureBlobStore implements the core.ObjectStore interface using one Azure Storage container.
type AzureBlobStore struct {
	client    *azblob.Client
	container string
}

// NewAzureBlobStore connects with a storage connection string and makes sure the container exists.
func NewAzureBlobStore(ctx context.Context, connectionString, containerName string) (*AzureBlobStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	_, err = client.CreateContainer(ctx, containerName, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create blob container '%s': %w", containerName, err)
	}

	return &AzureBlobStore{
		client:    client,
		container: containerName,
	}, nil
}

// Download retrieves a blob's full contents.
func (a *AzureBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get blob '%s' from container '%s': %w", key, a.container, err)
	}

	data, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read blob '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close blob '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload streams data into a block blob, overwriting an existing blob of the same name.
func (a *AzureBlobStore) Upload(ctx context.Context, key string, data io.Reader) error {
	contentType := contentTypeWAV

	_, err := a.client.UploadStream(ctx, a.container, key, data, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob '%s' to container '%s': %w", key, a.container, err)
	}

	return nil
}
