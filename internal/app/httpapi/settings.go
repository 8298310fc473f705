package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bgfactura/invoicing/internal/app/services/settings"
)

func (h *handler) settingsRoutes(r *mux.Router) {
	r.HandleFunc("", h.getSettings).Methods(http.MethodGet)
	r.HandleFunc("", h.updateSettings).Methods(http.MethodPut)

	r.HandleFunc("/bank-accounts", h.listBankAccounts).Methods(http.MethodGet)
	r.HandleFunc("/bank-accounts", h.createBankAccount).Methods(http.MethodPost)
	r.HandleFunc("/bank-accounts/{id:[0-9]+}", h.updateBankAccount).Methods(http.MethodPut)
	r.HandleFunc("/bank-accounts/{id:[0-9]+}", h.deleteBankAccount).Methods(http.MethodDelete)

	r.HandleFunc("/payment-methods", h.listPaymentMethods).Methods(http.MethodGet)
	r.HandleFunc("/payment-methods", h.createPaymentMethod).Methods(http.MethodPost)
	r.HandleFunc("/payment-methods/{id:[0-9]+}", h.updatePaymentMethod).Methods(http.MethodPut)
	r.HandleFunc("/payment-methods/{id:[0-9]+}", h.deletePaymentMethod).Methods(http.MethodDelete)
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.app.Settings.Get(r.Context(), companyID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var in settings.UpdateInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.app.Settings.Update(r.Context(), companyID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *handler) listBankAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Settings.BankAccounts(r.Context(), companyID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handler) createBankAccount(w http.ResponseWriter, r *http.Request) {
	var in settings.BankAccountInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	acc, err := h.app.Settings.CreateBankAccount(r.Context(), companyID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, acc)
}

func (h *handler) updateBankAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in settings.BankAccountInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	acc, err := h.app.Settings.UpdateBankAccount(r.Context(), companyID(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, acc)
}

func (h *handler) deleteBankAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Settings.DeleteBankAccount(r.Context(), companyID(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "bank account deleted successfully"})
}

func (h *handler) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Settings.PaymentMethods(r.Context(), companyID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handler) createPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var in settings.PaymentMethodInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	pm, err := h.app.Settings.CreatePaymentMethod(r.Context(), companyID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, pm)
}

func (h *handler) updatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in settings.PaymentMethodInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	pm, err := h.app.Settings.UpdatePaymentMethod(r.Context(), companyID(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pm)
}

func (h *handler) deletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.app.Settings.DeletePaymentMethod(r.Context(), companyID(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "payment method deleted successfully"})
}
