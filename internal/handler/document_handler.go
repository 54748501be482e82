package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
	logger    *zap.Logger
}

func NewDocumentHandler(documents *service.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: logger}
}

// ListDocuments returns an empty list unless ?project= names a project
// the caller belongs to.
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	p := CurrentPrincipal(c)
	projectID, err := queryID(c, "project")
	if err != nil {
		RespondError(c, h.logger, "ListDocuments", err)
		return
	}

	docs, err := h.documents.List(c.Request.Context(), p, projectID)
	if err != nil {
		RespondError(c, h.logger, "ListDocuments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	p := CurrentPrincipal(c)
	h.logger.Info("CreateDocument request received",
		zap.Int64("user_id", p.UserID()),
		zap.String("client_ip", c.ClientIP()),
	)

	var in service.DocumentInput
	if err := bindJSON(c, &in); err != nil {
		RespondError(c, h.logger, "CreateDocument", err)
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), p, in)
	if err != nil {
		RespondError(c, h.logger, "CreateDocument", err)
		return
	}

	h.logger.Info("CreateDocument: success",
		zap.Int64("document_id", doc.ID),
		zap.Int64("project_id", doc.ProjectID),
		zap.Int("version", doc.Version),
	)
	c.JSON(http.StatusCreated, doc)
}
