// Package hoster talks to the external image host that stores uploads.
package hoster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/minio/minio-go/v7"

	"github.com/abduss/imgbed/internal/config"
)

// File is the payload handed to an Uploader.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Result describes an image stored on the remote host.
type Result struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Size     string `json:"size"`
	Pix      string `json:"pix"`
	FileID   string `json:"fileId"`
	Quality  int    `json:"quality"`
}

// Uploader stores a file on the remote host. Implementations do not retry.
type Uploader interface {
	Upload(ctx context.Context, file File) (Result, error)
}

// FormatSize renders a byte count as B/KB/MB/GB with at most two decimals.
func FormatSize(size int64) string {
	const unit = 1024
	switch {
	case size < unit:
		return fmt.Sprintf("%d B", size)
	case size < unit*unit:
		return round2(float64(size)/unit) + " KB"
	case size < unit*unit*unit:
		return round2(float64(size)/(unit*unit)) + " MB"
	default:
		return round2(float64(size)/(unit*unit*unit)) + " GB"
	}
}

func round2(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// ErrObjectStoreRequired is returned when the minio backend is selected without a client.
var ErrObjectStoreRequired = errors.New("minio client required for minio hoster backend")

// New returns the uploader selected by cfg.Backend.
func New(cfg config.HosterConfig, minioCfg config.MinIOConfig, client *minio.Client) (Uploader, error) {
	switch cfg.Backend {
	case config.BackendRemote:
		return NewRemoteUploader(cfg), nil
	case config.BackendMinIO:
		if client == nil {
			return nil, ErrObjectStoreRequired
		}
		return NewMinIOUploader(NewMinIOStore(client), minioCfg), nil
	default:
		return nil, fmt.Errorf("unsupported hoster backend %q", cfg.Backend)
	}
}
