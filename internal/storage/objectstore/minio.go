// Package objectstore stores meeting documents (agendas, proxy forms,
// resolution texts) in an S3-compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/quorumdesk/agm-api/internal/config"
	"github.com/quorumdesk/agm-api/internal/logger"
)

// Document describes one stored meeting document
type Document struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
}

// DocumentStore persists meeting documents in an S3-compatible bucket,
// keyed by meeting id
type DocumentStore struct {
	client *minio.Client
	bucket string
	log    *log.Logger
}

// NewDocumentStore connects to the object store and ensures the bucket exists
func NewDocumentStore(ctx context.Context, cfg *config.Config) (*DocumentStore, error) {
	client, err := minio.New(cfg.Documents.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Documents.AccessKey, cfg.Documents.SecretKey, ""),
		Secure: cfg.Documents.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	store := &DocumentStore{
		client: client,
		bucket: cfg.Documents.Bucket,
		log:    logger.Service("documents"),
	}

	exists, err := client.BucketExists(ctx, store.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check document bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, store.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create document bucket: %w", err)
		}
		store.log.Info("document bucket created", "bucket", store.bucket)
	}

	return store, nil
}

// objectKey namespaces documents by meeting
func objectKey(meetingID uuid.UUID, name string) string {
	return fmt.Sprintf("meetings/%s/%s", meetingID, name)
}

// Upload stores a document for a meeting
func (s *DocumentStore) Upload(ctx context.Context, meetingID uuid.UUID, name, contentType string, reader io.Reader, size int64) (*Document, error) {
	key := objectKey(meetingID, name)

	s.log.Debug("uploading document", "meeting_id", meetingID, "key", key, "size", size)

	info, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.log.Error("failed to upload document", "meeting_id", meetingID, "key", key, "error", err)
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}

	s.log.Info("document uploaded", "meeting_id", meetingID, "key", key, "size", info.Size)

	return &Document{
		Key:         key,
		Name:        name,
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}

// Download streams a document back to the caller. The returned reader must
// be closed by the caller.
func (s *DocumentStore) Download(ctx context.Context, meetingID uuid.UUID, name string) (io.ReadCloser, *Document, error) {
	key := objectKey(meetingID, name)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve document: %w", err)
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, nil, fmt.Errorf("failed to stat document: %w", err)
	}

	doc := &Document{
		Key:          key,
		Name:         name,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		LastModified: stat.LastModified,
	}
	return obj, doc, nil
}

// List returns the documents stored for a meeting
func (s *DocumentStore) List(ctx context.Context, meetingID uuid.UUID) ([]Document, error) {
	prefix := fmt.Sprintf("meetings/%s/", meetingID)

	var docs []Document
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", info.Err)
		}
		docs = append(docs, Document{
			Key:          info.Key,
			Name:         info.Key[len(prefix):],
			Size:         info.Size,
			ContentType:  info.ContentType,
			LastModified: info.LastModified,
		})
	}

	return docs, nil
}

// Delete removes a document
func (s *DocumentStore) Delete(ctx context.Context, meetingID uuid.UUID, name string) error {
	key := objectKey(meetingID, name)

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.log.Error("failed to delete document", "meeting_id", meetingID, "key", key, "error", err)
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.log.Info("document deleted", "meeting_id", meetingID, "key", key)
	return nil
}
