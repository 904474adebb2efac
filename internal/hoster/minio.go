package hoster

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/abduss/imgbed/internal/config"
	"github.com/abduss/imgbed/internal/imaging"
)

const maxPresignTTL = 7 * 24 * time.Hour

// objectStore is the subset of minio.Client used for uploads.
type objectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader *bytes.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// MinIOStore adapts minio.Client to objectStore.
type MinIOStore struct {
	client *minio.Client
}

// NewMinIOStore constructs an adapter.
func NewMinIOStore(client *minio.Client) *MinIOStore {
	return &MinIOStore{client: client}
}

func (s *MinIOStore) PutObject(ctx context.Context, bucketName, objectName string, reader *bytes.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return s.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (s *MinIOStore) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	return s.client.PresignedGetObject(ctx, bucketName, objectName, expires, reqParams)
}

// MinIOUploader stores images in an S3-compatible bucket.
type MinIOUploader struct {
	store         objectStore
	bucket        string
	publicBaseURL string
	presignTTL    time.Duration
	now           func() time.Time
}

// NewMinIOUploader wires an uploader for cfg.Bucket.
func NewMinIOUploader(store objectStore, cfg config.MinIOConfig) *MinIOUploader {
	ttl := cfg.PresignTTL
	if ttl <= 0 || ttl > maxPresignTTL {
		ttl = maxPresignTTL
	}
	return &MinIOUploader{
		store:         store,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignTTL:    ttl,
		now:           time.Now,
	}
}

// Upload puts the object under yyyy/mm/dd/<name> and returns its URL.
func (u *MinIOUploader) Upload(ctx context.Context, file File) (Result, error) {
	objectName := path.Join(u.now().UTC().Format("2006/01/02"), path.Base(filepath.ToSlash(file.Name)))

	info, err := u.store.PutObject(ctx, u.bucket, objectName, bytes.NewReader(file.Data), int64(len(file.Data)), minio.PutObjectOptions{
		ContentType: file.MIMEType,
	})
	if err != nil {
		return Result{}, &Error{Kind: KindTransport, Err: fmt.Errorf("put object: %w", err)}
	}

	link, err := u.objectURL(ctx, objectName)
	if err != nil {
		return Result{}, &Error{Kind: KindFormat, Err: err}
	}

	size := info.Size
	if size <= 0 {
		size = int64(len(file.Data))
	}

	pix := "unknown"
	if _, cfg, err := imaging.Sniff(file.Data); err == nil {
		pix = fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
	}

	return Result{
		URL:      link,
		FileName: strings.TrimSuffix(file.Name, filepath.Ext(file.Name)),
		Size:     FormatSize(size),
		Pix:      pix,
		FileID:   objectName,
		Quality:  100,
	}, nil
}

func (u *MinIOUploader) objectURL(ctx context.Context, objectName string) (string, error) {
	if u.publicBaseURL != "" {
		return u.publicBaseURL + "/" + objectName, nil
	}
	signed, err := u.store.PresignedGetObject(ctx, u.bucket, objectName, u.presignTTL, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return signed.String(), nil
}
