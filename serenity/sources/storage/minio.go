package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"serenity/serenity/config"
)

// ReportArchive keeps a copy of every session analysis report in object
// storage, alongside the row written to the database.
type ReportArchive struct {
	client *minio.Client
	bucket string
}

type ReportObject struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Analysis  string    `json:"analysis"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportArchive(cfg config.Config) (*ReportArchive, error) {
	bucket := cfg.MinIOBucket
	client, err := minio.New(
		cfg.MinIOEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: false,
		},
	)
	if err != nil {
		return nil, err
	}
	// Create bucket if not exists
	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &ReportArchive{client: client, bucket: bucket}, nil
}

// ArchiveReport uploads one analysis report. Keys are keyed by session so a
// re-run of the same session replaces the previous report.
func (m *ReportArchive) ArchiveReport(ctx context.Context, sessionID, userID, analysisJSON string) (string, error) {
	key := filepath.Join("reports", fmt.Sprintf("%s.json", sessionID))

	obj := ReportObject{
		SessionID: sessionID,
		UserID:    userID,
		Analysis:  analysisJSON,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}

	_, err = m.client.PutObject(ctx, m.bucket, key,
		io.NopCloser(strings.NewReader(string(data))), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", err
	}

	return key, nil
}

// GetReport fetches a previously archived report by key.
func (m *ReportArchive) GetReport(ctx context.Context, key string) (string, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
