package upload

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abduss/imgbed/internal/config"
)

// ValidationError reports which input check rejected a file.
type ValidationError struct {
	Check string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validator enforces the MIME allow-list and size ceiling.
type Validator struct {
	allowed map[string]struct{}
	maxSize int64
	now     func() time.Time
}

// NewValidator builds a validator from the upload limits.
func NewValidator(cfg config.UploadConfig) *Validator {
	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &Validator{allowed: allowed, maxSize: cfg.MaxFileSize, now: time.Now}
}

// Validate checks c and returns it under a freshly generated name.
func (v *Validator) Validate(c Candidate) (Candidate, error) {
	mimeType := strings.ToLower(strings.TrimSpace(c.MIMEType))
	if _, ok := v.allowed[mimeType]; !ok {
		return c, &ValidationError{Check: "type", Msg: fmt.Sprintf("file type %q is not allowed", c.MIMEType)}
	}
	if c.Size > v.maxSize {
		return c, v.tooLarge()
	}
	if c.Data == nil && c.Open != nil {
		data, err := c.Open()
		if err != nil {
			return c, &ValidationError{Check: "read", Msg: "could not read uploaded file"}
		}
		c.Data, c.Size = data, int64(len(data))
		if c.Size > v.maxSize {
			return c, v.tooLarge()
		}
	}
	if c.Size <= 0 || len(c.Data) == 0 {
		return c, &ValidationError{Check: "size", Msg: "file is empty"}
	}
	return c.replace(generateName(c.OriginalName, v.now()), c.MIMEType, c.Data), nil
}

func (v *Validator) tooLarge() error {
	return &ValidationError{Check: "size", Msg: fmt.Sprintf("file exceeds the %d byte limit", v.maxSize)}
}

// generateName yields img_<YYYYMMDDHHMMSS>_<6 hex>.<ext>.
func generateName(original string, now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	name := fmt.Sprintf("img_%s_%s", now.Format("20060102150405"), random)
	if ext := filepath.Ext(original); ext != "" {
		name += ext
	}
	return name
}

func replaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + "." + ext
}

// NormalizeFormat maps unknown targets to FormatOriginal.
func NormalizeFormat(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case FormatWebP, FormatAVIF:
		return f
	default:
		return FormatOriginal
	}
}
