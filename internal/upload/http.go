package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abduss/imgbed/internal/access"
	"github.com/abduss/imgbed/internal/logger"
)

// RegisterRoutes mounts the upload endpoint onto the router.
func RegisterRoutes(group *gin.RouterGroup, service *Service, log *zap.Logger) {
	handler := &httpHandler{service: service, log: log}
	group.Any("/upload", handler.upload)
}

type httpHandler struct {
	service *Service
	log     *zap.Logger
}

func (h *httpHandler) upload(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "message": "method not allowed"})
		return
	}
	log := logger.FromContext(c, h.log)

	// admission runs before the multipart body is parsed
	if err := h.service.Admit(c.Request.Context(), access.ClientID(c)); err != nil {
		h.writeError(c, log, err)
		return
	}

	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		headers = form.File["files[]"]
		if len(headers) == 0 {
			headers = form.File["files"]
		}
	}

	files := make([]Candidate, 0, len(headers))
	for _, header := range headers {
		files = append(files, h.candidate(header))
	}

	resp, err := h.service.Process(c.Request.Context(), Batch{
		ClientID: access.ClientID(c),
		Files:    files,
		Category: c.PostForm("category"),
		Format:   c.PostForm("format"),
	})
	if err != nil {
		h.writeError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *httpHandler) writeError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "too many requests, please try again later"})
	case errors.Is(err, ErrNoFiles):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "no files uploaded"})
	default:
		log.Error("upload request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}
}

// candidate describes a part without reading it. The pipeline opens it only
// after the declared type and size pass, so one file is in memory at a time.
func (h *httpHandler) candidate(header *multipart.FileHeader) Candidate {
	limit := h.service.MaxFileSize()
	return Candidate{
		OriginalName: header.Filename,
		Name:         header.Filename,
		MIMEType:     header.Header.Get("Content-Type"),
		Size:         header.Size,
		Open: func() ([]byte, error) {
			f, err := header.Open()
			if err != nil {
				return nil, fmt.Errorf("open part: %w", err)
			}
			defer f.Close()

			data, err := io.ReadAll(io.LimitReader(f, limit+1))
			if err != nil {
				return nil, fmt.Errorf("read part: %w", err)
			}
			return data, nil
		},
	}
}
