package httpapi

import (
	"bytes"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bgfactura/invoicing/internal/app/services/expenses"
	"github.com/bgfactura/invoicing/internal/app/services/export"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
)

// envelope is the response shape of the expenses endpoints.
type envelope struct {
	Success bool                   `json:"success"`
	Data    interface{}            `json:"data,omitempty"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (h *handler) expenseRoutes(r *mux.Router) {
	r.HandleFunc("", h.listExpenses).Methods(http.MethodGet)
	r.HandleFunc("", h.createExpense).Methods(http.MethodPost)
	r.HandleFunc("/export.xlsx", h.exportExpenses).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", h.getExpense).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", h.updateExpense).Methods(http.MethodPut)
	r.HandleFunc("/{id:[0-9]+}", h.deleteExpense).Methods(http.MethodDelete)
}

func (h *handler) envelopeError(w http.ResponseWriter, r *http.Request, err error) {
	se := apperrors.GetServiceError(err)
	if se == nil {
		se = apperrors.Internal("Internal server error", err)
	}
	if se.HTTPStatus >= http.StatusInternalServerError {
		h.log.WithContext(r.Context()).WithError(err).Error("expense request failed")
	}
	h.writeJSON(w, se.HTTPStatus, envelope{Message: se.Message, Details: se.Details})
}

func (h *handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Expenses.List(r.Context(), companyID(r))
	if err != nil {
		h.envelopeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{Success: true, Data: list})
}

func (h *handler) getExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.envelopeError(w, r, err)
		return
	}
	e, err := h.app.Expenses.Get(r.Context(), companyID(r), id)
	if err != nil {
		h.envelopeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{Success: true, Data: e})
}

func (h *handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var in expenses.Input
	if err := h.decode(r, &in); err != nil {
		h.envelopeError(w, r, err)
		return
	}
	e, err := h.app.Expenses.Create(r.Context(), companyID(r), in)
	if err != nil {
		h.envelopeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, envelope{Success: true, Data: e, Message: "Expense created successfully"})
}

func (h *handler) updateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.envelopeError(w, r, err)
		return
	}
	var p expenses.Patch
	if err := h.decode(r, &p); err != nil {
		h.envelopeError(w, r, err)
		return
	}
	e, err := h.app.Expenses.Update(r.Context(), companyID(r), id, p)
	if err != nil {
		h.envelopeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{Success: true, Data: e, Message: "Expense updated successfully"})
}

func (h *handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.envelopeError(w, r, err)
		return
	}
	if err := h.app.Expenses.Delete(r.Context(), companyID(r), id); err != nil {
		h.envelopeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Expense deleted successfully"})
}

func (h *handler) exportExpenses(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.app.Expenses.Export(r.Context(), companyID(r), &buf); err != nil {
		h.envelopeError(w, r, err)
		return
	}
	attachment(w, export.ContentType, export.Filename("expenses", h.now()), buf.Bytes())
}
