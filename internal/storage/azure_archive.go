package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"go-imaging-report/internal/logger"
)

// ImageArchiver stores the normalized image that produced a report.
type ImageArchiver interface {
	ArchiveImage(ctx context.Context, reportID string, img image.Image) error
}

// azureArchiver uploads normalized JPEGs to an Azure blob container,
// one blob per report id.
type azureArchiver struct {
	client    *azblob.Client
	container string
}

func NewAzureArchiver(accountName, accountKey, container string) (ImageArchiver, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &azureArchiver{client: client, container: container}, nil
}

func (s *azureArchiver) ArchiveImage(ctx context.Context, reportID string, img image.Image) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("encode archive image: %w", err)
	}

	blobName := reportID + ".jpg"
	if _, err := s.client.UploadStream(ctx, s.container, blobName, &buf, nil); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	logger.WithStage("archive").WithFields(map[string]interface{}{
		"container": s.container,
		"blob":      blobName,
	}).Debug("normalized image archived")
	return nil
}

// NoopArchiver is used when blob storage is not configured.
type NoopArchiver struct{}

func (NoopArchiver) ArchiveImage(context.Context, string, image.Image) error { return nil }
