package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arran4/chat2png"
	"github.com/arran4/chat2png/internal/chat"
	"github.com/arran4/chat2png/internal/export"
	"github.com/arran4/chat2png/internal/store"
	apperrors "github.com/arran4/chat2png/pkg/errors"
	"github.com/arran4/chat2png/pkg/logger"
)

type handler struct {
	renderer *chat2png.Renderer
	store    *store.Store
}

func (h *handler) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		resp["database"] = "ok"
	}
	c.JSON(http.StatusOK, resp)
}

func bindConversation(c *gin.Context) (chat.Conversation, bool) {
	var conv chat.Conversation
	if err := c.ShouldBindJSON(&conv); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Error(apperrors.Wrap(apperrors.ErrCodeMediaSize, "request body too large", err))
			return conv, false
		}
		c.Error(apperrors.Wrap(apperrors.ErrCodeValidation, "invalid conversation: "+err.Error(), err))
		return conv, false
	}
	conv.Normalize()
	if err := conv.Validate(); err != nil {
		c.Error(apperrors.Wrap(apperrors.ErrCodeValidation, err.Error(), err))
		return conv, false
	}
	return conv, true
}

func parseMode(c *gin.Context) (export.Mode, bool) {
	mode, err := export.ParseMode(c.Query("mode"))
	if err != nil {
		c.Error(apperrors.Wrap(apperrors.ErrCodeValidation, err.Error(), err))
		return "", false
	}
	return mode, true
}

// export streams conv as a PNG download. The backend follows the client's
// User-Agent.
func (h *handler) export(c *gin.Context, conv chat.Conversation, mode export.Mode) {
	s := h.renderer.NewSession(conv)
	defer s.Close()

	ctx := export.WithUserAgent(c.Request.Context(), c.Request.UserAgent())
	res, err := s.Export(ctx, mode, export.HTTPSaver{W: c.Writer})
	if err != nil {
		c.Error(err)
		return
	}
	if res == nil {
		c.Error(apperrors.New(apperrors.ErrCodeNoRoot, "nothing to export"))
		return
	}
	logger.Debug("Export served",
		zap.String("export_id", res.ID),
		zap.String("request_id", c.GetString(RequestIDKey)),
		zap.String("backend", res.Backend),
		zap.Int("bytes", res.Size),
	)
}

// createExport handles POST /api/v1/exports?mode=.
func (h *handler) createExport(c *gin.Context) {
	mode, ok := parseMode(c)
	if !ok {
		return
	}
	conv, ok := bindConversation(c)
	if !ok {
		return
	}
	h.export(c, conv, mode)
}

// uploadMedia turns an uploaded image into a data URL usable as avatar or
// wallpaper.
func (h *handler) uploadMedia(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.Error(apperrors.Wrap(apperrors.ErrCodeValidation, "missing file field", err))
		return
	}
	if fh.Size > chat.MaxImageBytes {
		c.Error(apperrors.New(apperrors.ErrCodeMediaSize, chat.ErrImageTooLarge.Error()))
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.Error(apperrors.ErrInternal("open upload", err))
		return
	}
	defer f.Close()

	url, err := chat.Ingest(f)
	switch {
	case errors.Is(err, chat.ErrNotImage):
		c.Error(apperrors.Wrap(apperrors.ErrCodeMediaType, err.Error(), err))
		return
	case errors.Is(err, chat.ErrImageTooLarge):
		c.Error(apperrors.Wrap(apperrors.ErrCodeMediaSize, err.Error(), err))
		return
	case err != nil:
		c.Error(apperrors.ErrInternal("read upload", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data_url": url})
}

func (h *handler) createConversation(c *gin.Context) {
	conv := chat.New()
	if c.Request.ContentLength != 0 {
		var ok bool
		if conv, ok = bindConversation(c); !ok {
			return
		}
	}
	rec, err := h.store.Create(c.Request.Context(), conv)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *handler) listConversations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	recs, err := h.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs, "limit": limit, "offset": offset})
}

func (h *handler) getConversation(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) updateConversation(c *gin.Context) {
	conv, ok := bindConversation(c)
	if !ok {
		return
	}
	rec, err := h.store.Update(c.Request.Context(), c.Param("id"), conv)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) deleteConversation(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) exportConversation(c *gin.Context) {
	mode, ok := parseMode(c)
	if !ok {
		return
	}
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	h.export(c, rec.Conversation, mode)
}

// previewConversation serves the live preview document, badge included.
func (h *handler) previewConversation(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	s := h.renderer.NewSession(rec.Conversation)
	defer s.Close()
	page, err := s.HTML()
	if err != nil {
		c.Error(apperrors.ErrInternal("render preview", err))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
