package handlers

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chatq/assist-backend/internal/models"
	"github.com/chatq/assist-backend/internal/services"
)

const maxUploadBytes = 50 << 20 // 50 MB

// DocumentHandler serves the admin knowledge-document endpoints.
type DocumentHandler struct {
	docs *services.DocumentService
	log  *slog.Logger
}

func NewDocumentHandler(docs *services.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, log: logger}
}

// Upload accepts a multipart file plus title and type fields, stores the
// file and returns the PENDING document record immediately.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	tenantID, err := authorizeAdmin(r, services.ActionManageDocuments)
	if err != nil {
		respondError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid multipart body"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "file field missing"})
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}
	documentType := r.FormValue("documentType")
	if documentType == "" {
		documentType = typeFromFilename(header.Filename)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.docs.UploadDocument(r.Context(), tenantID, title, documentType, header.Filename, contentType, file, header.Size)
	if err != nil {
		h.log.Error("upload failed", "tenant_id", tenantID, "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, doc)
}

type ingestURLRequest struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// IngestURL registers a web page for ingestion.
func (h *DocumentHandler) IngestURL(w http.ResponseWriter, r *http.Request) {
	tenantID, err := authorizeAdmin(r, services.ActionManageDocuments)
	if err != nil {
		respondError(w, err)
		return
	}

	var req ingestURLRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	doc, err := h.docs.IngestFromURL(r.Context(), tenantID, req.URL, req.Title)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, err := authorizeAdmin(r, services.ActionViewDocuments)
	if err != nil {
		respondError(w, err)
		return
	}

	docs, err := h.docs.ListDocuments(r.Context(), tenantID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := authorizeAdmin(r, services.ActionViewDocuments)
	if err != nil {
		respondError(w, err)
		return
	}

	doc, err := h.docs.GetDocument(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, err := authorizeAdmin(r, services.ActionManageDocuments)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.docs.DeleteDocument(r.Context(), tenantID, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func typeFromFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return models.DocTypePDF
	case ".docx":
		return models.DocTypeDOCX
	default:
		return models.DocTypeTXT
	}
}
