package hoster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/abduss/imgbed/internal/config"
)

const maxResponseBytes = 1 << 20

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// RemoteUploader posts files as multipart/form-data to an HTTP image host.
type RemoteUploader struct {
	client    *http.Client
	endpoint  string
	cookie    string
	userAgent string
}

// NewRemoteUploader builds an uploader bounded by cfg.Timeout.
func NewRemoteUploader(cfg config.HosterConfig) *RemoteUploader {
	endpoint := cfg.RemoteURL
	if cfg.RemoteQuery != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + cfg.RemoteQuery
	}
	return &RemoteUploader{
		client:    &http.Client{Timeout: cfg.Timeout},
		endpoint:  endpoint,
		cookie:    cfg.Cookie,
		userAgent: cfg.UserAgent,
	}
}

type remoteResponse struct {
	Success bool          `json:"success"`
	Object  *remoteObject `json:"object"`
}

type remoteObject struct {
	URL      string      `json:"url"`
	FileName string      `json:"fileName"`
	Size     json.Number `json:"size"`
	Pix      flexString  `json:"pix"`
	FileID   flexString  `json:"fileId"`
	Quality  json.Number `json:"quality"`
}

// flexString accepts either a JSON string or a number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	*f = flexString(b)
	return nil
}

// Upload sends the file and parses the host's JSON answer.
func (u *RemoteUploader) Upload(ctx context.Context, file File) (Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filepath.Base(file.Name))))
	header.Set("Content-Type", file.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return Result{}, &Error{Kind: KindTransport, Err: fmt.Errorf("create form part: %w", err)}
	}
	if _, err := part.Write(file.Data); err != nil {
		return Result{}, &Error{Kind: KindTransport, Err: fmt.Errorf("write form part: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return Result{}, &Error{Kind: KindTransport, Err: fmt.Errorf("close form: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return Result{}, &Error{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}
	if u.cookie != "" {
		req.Header.Set("Cookie", "cookie2="+u.cookie)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return Result{}, &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, &Error{Kind: KindTransport, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, &Error{Kind: KindStatus, Status: resp.StatusCode, Response: string(raw)}
	}

	var payload remoteResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Result{}, &Error{Kind: KindParse, Status: resp.StatusCode, Response: string(raw), Err: err}
	}
	if !payload.Success {
		return Result{}, &Error{Kind: KindAPI, Status: resp.StatusCode, Response: string(raw)}
	}
	if payload.Object == nil || payload.Object.URL == "" {
		return Result{}, &Error{Kind: KindFormat, Status: resp.StatusCode, Response: string(raw)}
	}

	return payload.Object.result(file), nil
}

func (o *remoteObject) result(file File) Result {
	res := Result{
		URL:      o.URL,
		FileName: o.FileName,
		Pix:      string(o.Pix),
		FileID:   string(o.FileID),
		Quality:  100,
	}
	if res.FileName == "" {
		res.FileName = strings.TrimSuffix(file.Name, filepath.Ext(file.Name))
	}
	size := int64(len(file.Data))
	if n, err := o.Size.Int64(); err == nil {
		size = n
	}
	res.Size = FormatSize(size)
	if res.Pix == "" {
		res.Pix = "unknown"
	}
	if q, err := o.Quality.Int64(); err == nil {
		res.Quality = int(q)
	}
	return res
}
