package gallery

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/abduss/imgbed/internal/logger"
)

// RegisterRoutes mounts the catalog endpoints onto the router.
func RegisterRoutes(group *gin.RouterGroup, store *Store, log *zap.Logger) {
	handler := &httpHandler{store: store, log: log}
	group.Any("/manage", handler.manage)
	group.GET("/gallery", handler.list)
}

type httpHandler struct {
	store *Store
	log   *zap.Logger
}

type manageRequest struct {
	Action      string `json:"action" form:"action"`
	ID          string `json:"id" form:"id"`
	Category    string `json:"category" form:"category"`
	From        string `json:"from" form:"from"`
	To          string `json:"to" form:"to"`
	Name        string `json:"name" form:"name"`
	Replacement string `json:"replacement" form:"replacement"`
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func (h *httpHandler) manage(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		fail(c, http.StatusMethodNotAllowed, "only POST is allowed")
		return
	}

	var req manageRequest
	if strings.Contains(strings.ToLower(c.ContentType()), "application/json") {
		if err := c.ShouldBindJSON(&req); err != nil {
			req = manageRequest{}
		}
	} else {
		_ = c.ShouldBindWith(&req, binding.Form)
	}

	ctx := c.Request.Context()
	switch strings.TrimSpace(req.Action) {
	case "":
		fail(c, http.StatusBadRequest, "missing action")
	case "delete":
		total, err := h.store.Delete(ctx, req.ID)
		if err != nil {
			h.writeError(c, err, "id")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "deleted", "removed": 1, "total": total})
	case "setCategory":
		category, err := h.store.SetCategory(ctx, req.ID, req.Category)
		if err != nil {
			h.writeError(c, err, "id")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "updated", "id": strings.TrimSpace(req.ID), "category": category})
	case "renameCategory":
		updated, err := h.store.RenameCategory(ctx, req.From, req.To)
		if err != nil {
			h.writeError(c, err, "from/to")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "renamed", "updated": updated})
	case "deleteCategory":
		moved, to, err := h.store.DeleteCategory(ctx, req.Name, req.Replacement)
		if err != nil {
			h.writeError(c, err, "name")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "category deleted", "moved": moved, "to": to})
	default:
		fail(c, http.StatusBadRequest, "unknown action")
	}
}

func (h *httpHandler) writeError(c *gin.Context, err error, param string) {
	switch {
	case errors.Is(err, ErrMissingParam):
		fail(c, http.StatusBadRequest, "missing "+param)
	case errors.Is(err, ErrNotFound):
		fail(c, http.StatusNotFound, "record not found")
	case errors.Is(err, ErrNoChanges):
		fail(c, http.StatusConflict, "no changes")
	default:
		logger.FromContext(c, h.log).Error("catalog write failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to write catalog")
	}
}

func (h *httpHandler) list(c *gin.Context) {
	records, err := h.store.List(c.Request.Context())
	if err != nil {
		logger.FromContext(c, h.log).Error("catalog read failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to read catalog")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"gallery":    records,
		"categories": countCategories(records),
	})
}
