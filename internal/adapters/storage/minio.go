// Package storage provides the MinIO-backed transcript archive.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"presales_backend/internal/chat/domain"
	"presales_backend/platform/config"
)

// MinIOService wraps a MinIO client for object storage.
type MinIOService struct {
	client *minio.Client
	bucket string
}

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg config.MinIOConfig) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client: client,
		bucket: cfg.GetMinioBucketTranscripts(),
	}, nil
}

// EnsureBucketExists creates the transcript bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// transcriptDocument is the archived representation of a finished session.
type transcriptDocument struct {
	SessionID string           `json:"session_id"`
	State     string           `json:"state"`
	Facts     domain.Facts     `json:"facts"`
	Summary   string           `json:"summary,omitempty"`
	History   []domain.Message `json:"history"`
	CreatedAt string           `json:"created_at"`
}

// Archive stores the session transcript as a JSON object, keyed by session
// ID and start date so archived runs stay browsable per day.
func (s *MinIOService) Archive(ctx context.Context, session domain.Session) error {
	doc := transcriptDocument{
		SessionID: session.ID,
		State:     string(session.State),
		Facts:     session.Facts,
		Summary:   session.Summary,
		History:   session.History,
		CreatedAt: session.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	key := fmt.Sprintf("%s/%s.json", session.CreatedAt.UTC().Format("2006-01-02"), session.ID)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to store transcript %s: %w", key, err)
	}
	return nil
}
