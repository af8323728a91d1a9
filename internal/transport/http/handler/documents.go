package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docchat/internal/app"
	"docchat/internal/pkg/extract"
	"docchat/internal/transport/http/response"
)

const maxUploadSize = 20 << 20 // 20 MB

type DocumentHandler struct {
	documentService *app.DocumentService
}

func NewDocumentHandler(documentService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Upload accepts a multipart form with "file", stores it and rebuilds the
// index over the full document set.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 20MB)")
		return
	}
	if !extract.Supported(file.Filename) {
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFile, "only PDF, TXT and Markdown files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	result, err := h.documentService.Upload(c.Request.Context(), file.Filename, f)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnsupportedFile):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFile, err.Error())
		case errors.Is(err, app.ErrEmptyDocument):
			response.Error(c, http.StatusBadRequest, response.CodeEmptyDocument, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed: "+err.Error())
		}
		return
	}

	response.OK(c, result)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documentService.List()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	docID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || docID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), uint(docID64)); err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_document_id": uint(docID64)})
}

func (h *DocumentHandler) DeleteAll(c *gin.Context) {
	if err := h.documentService.DeleteAll(c.Request.Context()); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete documents failed")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}
