package httpapi

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/bgfactura/invoicing/internal/app/domain/document"
	"github.com/bgfactura/invoicing/internal/app/services/documents"
	"github.com/bgfactura/invoicing/internal/app/services/export"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
)

type documentPage struct {
	Documents   []document.Document `json:"documents"`
	TotalCount  int                 `json:"totalCount"`
	TotalPages  int                 `json:"totalPages"`
	CurrentPage int                 `json:"currentPage"`
}

type statusInput struct {
	Status document.Status `json:"status"`
}

func (h *handler) documentRoutes(r *mux.Router) {
	r.HandleFunc("", h.listDocuments).Methods(http.MethodGet)
	r.HandleFunc("", h.createDocument).Methods(http.MethodPost)
	r.HandleFunc("/export.xlsx", h.exportDocuments).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", h.getDocument).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", h.updateDocument).Methods(http.MethodPut)
	r.HandleFunc("/{id:[0-9]+}", h.deleteDocument).Methods(http.MethodDelete)
	r.HandleFunc("/{id:[0-9]+}/status", h.updateDocumentStatus).Methods(http.MethodPatch)
	r.HandleFunc("/{id:[0-9]+}/pdf", h.documentPDF).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}/duplicate", h.duplicateDocument).Methods(http.MethodPost)
	r.HandleFunc("/{id:[0-9]+}/convert-to-invoice", h.convertDocument).Methods(http.MethodPost)
}

// documentFilter reads ?type and ?status. Unknown values are rejected
// rather than silently matching nothing.
func documentFilter(r *http.Request) (document.Filter, error) {
	q := r.URL.Query()
	var filter document.Filter
	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		t := document.Type(raw)
		if !t.Valid() {
			return filter, apperrors.Validation("Validation failed").WithDetails("type", "must be one of invoice, quote, delivery, proforma")
		}
		filter.Type = t
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		s := document.Status(raw)
		if !s.Valid() {
			return filter, apperrors.Validation("Validation failed").WithDetails("status", "must be one of draft, sent, paid, overdue, cancelled")
		}
		filter.Statuses = []document.Status{s}
	}
	return filter, nil
}

func (h *handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := documentFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.app.Documents.List(r.Context(), companyID(r), filter, listOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list := page.Documents
	if list == nil {
		list = []document.Document{}
	}
	h.writeJSON(w, http.StatusOK, documentPage{
		Documents:   list,
		TotalCount:  page.TotalCount,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
	})
}

func (h *handler) getDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, err := h.app.Documents.Get(r.Context(), companyID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var in documents.Input
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, err := h.app.Documents.Create(r.Context(), companyID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, doc)
}

func (h *handler) updateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in documents.Input
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, err := h.app.Documents.Update(r.Context(), companyID(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Documents.Delete(r.Context(), companyID(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "document deleted successfully"})
}

func (h *handler) updateDocumentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in statusInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, err := h.app.Documents.UpdateStatus(r.Context(), companyID(r), id, in.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *handler) documentPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rendered, err := h.app.Documents.PDF(r.Context(), companyID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	attachment(w, "application/pdf", rendered.Filename, rendered.Content)
}

func (h *handler) duplicateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, err := h.app.Documents.Duplicate(r.Context(), companyID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, doc)
}

func (h *handler) convertDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, err := h.app.Documents.ConvertToInvoice(r.Context(), companyID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, doc)
}

func (h *handler) exportDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := documentFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.app.Documents.Export(r.Context(), companyID(r), filter, &buf); err != nil {
		h.writeError(w, r, err)
		return
	}
	attachment(w, export.ContentType, export.Filename("documents", h.now()), buf.Bytes())
}
