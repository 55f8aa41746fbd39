package handlers

import (
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/response"
	"github.com/quorumdesk/agm-api/internal/storage/objectstore"
)

// DocumentHandler exposes meeting document storage to administrators
type DocumentHandler struct {
	store *objectstore.DocumentStore
	log   *log.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(store *objectstore.DocumentStore) *DocumentHandler {
	return &DocumentHandler{
		store: store,
		log:   logger.Handler("document_handler"),
	}
}

// Upload handles POST /api/admin/meetings/:id/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid meeting id")
		return
	}

	file, header, err := c.Request.FormFile("document")
	if err != nil {
		response.BadRequestError(c, "document file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.store.Upload(c.Request.Context(), meetingID, header.Filename, contentType, file, header.Size)
	if err != nil {
		h.log.Error("document upload failed", "meeting_id", meetingID, "error", err)
		response.InternalServerError(c, "failed to store document")
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "document uploaded", doc)
}

// List handles GET /api/admin/meetings/:id/documents
func (h *DocumentHandler) List(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid meeting id")
		return
	}

	docs, err := h.store.List(c.Request.Context(), meetingID)
	if err != nil {
		h.log.Error("document listing failed", "meeting_id", meetingID, "error", err)
		response.InternalServerError(c, "failed to list documents")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "documents", gin.H{
		"meeting_id": meetingID,
		"count":      len(docs),
		"documents":  docs,
	})
}

// Download handles GET /api/admin/meetings/:id/documents/:name
func (h *DocumentHandler) Download(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid meeting id")
		return
	}
	name := c.Param("name")

	reader, doc, err := h.store.Download(c.Request.Context(), meetingID, name)
	if err != nil {
		response.NotFoundError(c, "document not found")
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(doc.Name))
	c.DataFromReader(http.StatusOK, doc.Size, doc.ContentType, reader, nil)
}

// Delete handles DELETE /api/admin/meetings/:id/documents/:name
func (h *DocumentHandler) Delete(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid meeting id")
		return
	}
	name := c.Param("name")

	if err := h.store.Delete(c.Request.Context(), meetingID, name); err != nil {
		response.InternalServerError(c, "failed to delete document")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "document deleted", gin.H{
		"meeting_id": meetingID,
		"name":       name,
	})
}
