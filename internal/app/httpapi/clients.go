package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/bgfactura/invoicing/internal/app/domain/client"
	"github.com/bgfactura/invoicing/internal/app/services/clients"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
)

type clientPage struct {
	Clients     []client.Client `json:"clients"`
	TotalCount  int             `json:"totalCount"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

func (h *handler) clientRoutes(r *mux.Router) {
	r.HandleFunc("", h.listClients).Methods(http.MethodGet)
	r.HandleFunc("", h.createClient).Methods(http.MethodPost)
	r.HandleFunc("/active", h.activeClients).Methods(http.MethodGet)
	r.HandleFunc("/vat-check", h.checkVAT).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", h.getClient).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", h.updateClient).Methods(http.MethodPut)
	r.HandleFunc("/{id:[0-9]+}", h.deleteClient).Methods(http.MethodDelete)
}

func (h *handler) listClients(w http.ResponseWriter, r *http.Request) {
	page, err := h.app.Clients.List(r.Context(), companyID(r), listOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list := page.Clients
	if list == nil {
		list = []client.Client{}
	}
	h.writeJSON(w, http.StatusOK, clientPage{
		Clients:     list,
		TotalCount:  page.TotalCount,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
	})
}

func (h *handler) activeClients(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Clients.Active(r.Context(), companyID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handler) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.app.Clients.Get(r.Context(), companyID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *handler) createClient(w http.ResponseWriter, r *http.Request) {
	var in clients.Input
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.app.Clients.Create(r.Context(), companyID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *handler) updateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in clients.Input
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.app.Clients.Update(r.Context(), companyID(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.app.Clients.Delete(r.Context(), companyID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	msg := "client deleted successfully"
	if res.Deactivated {
		msg = "client deactivated (has associated documents)"
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (h *handler) checkVAT(w http.ResponseWriter, r *http.Request) {
	vatNumber := strings.TrimSpace(r.URL.Query().Get("vatNumber"))
	if vatNumber == "" {
		h.writeError(w, r, apperrors.Validation("Validation failed").WithDetails("vatNumber", "is required"))
		return
	}
	res, err := h.app.Clients.CheckVAT(r.Context(), vatNumber)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}
