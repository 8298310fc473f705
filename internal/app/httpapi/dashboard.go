package httpapi

import "net/http"

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.app.Documents.Dashboard(r.Context(), companyID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}
