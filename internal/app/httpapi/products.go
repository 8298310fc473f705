package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bgfactura/invoicing/internal/app/domain/product"
	"github.com/bgfactura/invoicing/internal/app/services/products"
)

type productPage struct {
	Products    []product.Product `json:"products"`
	TotalCount  int               `json:"totalCount"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
}

func (h *handler) productRoutes(r *mux.Router) {
	r.HandleFunc("", h.listProducts).Methods(http.MethodGet)
	r.HandleFunc("", h.createProduct).Methods(http.MethodPost)
	r.HandleFunc("/active", h.activeProducts).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", h.getProduct).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", h.updateProduct).Methods(http.MethodPut)
	r.HandleFunc("/{id:[0-9]+}", h.deleteProduct).Methods(http.MethodDelete)
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.app.Products.List(r.Context(), companyID(r), listOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list := page.Products
	if list == nil {
		list = []product.Product{}
	}
	h.writeJSON(w, http.StatusOK, productPage{
		Products:    list,
		TotalCount:  page.TotalCount,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
	})
}

func (h *handler) activeProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Products.Active(r.Context(), companyID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.app.Products.Get(r.Context(), companyID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in products.Input
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.app.Products.Create(r.Context(), companyID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

func (h *handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in products.Input
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.app.Products.Update(r.Context(), companyID(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.app.Products.Delete(r.Context(), companyID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	msg := "product deleted successfully"
	if res.Deactivated {
		msg = "product deactivated (used in documents)"
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}
