package gallery

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultCategory is assigned when a category is blank.
	DefaultCategory = "uncategorized"
	// MaxRecords caps the catalog; older records are evicted first.
	MaxRecords = 1000
	// TimeLayout formats Record.UploadTime.
	TimeLayout = "2006-01-02 15:04:05"
)

// Record is one cataloged upload. Only Category changes after creation.
type Record struct {
	ID         string `json:"id"`
	FileName   string `json:"fileName"`
	URL        string `json:"url"`
	Size       string `json:"size"`
	UploadTime string `json:"uploadTime"`
	Category   string `json:"category"`
}

// CategoryCount is the number of records filed under a category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NewRecord builds a record with a fresh id.
func NewRecord(fileName, url, size, category string, uploadedAt time.Time) Record {
	return Record{
		ID:         uuid.NewString(),
		FileName:   fileName,
		URL:        url,
		Size:       size,
		UploadTime: uploadedAt.Format(TimeLayout),
		Category:   NormalizeCategory(category),
	}
}

// NormalizeCategory trims name and falls back to DefaultCategory.
func NormalizeCategory(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultCategory
	}
	return name
}
