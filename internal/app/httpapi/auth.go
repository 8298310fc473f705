package httpapi

import (
	"net/http"

	"github.com/bgfactura/invoicing/internal/app/domain/company"
	"github.com/bgfactura/invoicing/internal/app/domain/user"
	"github.com/bgfactura/invoicing/internal/app/services/auth"
	internalmw "github.com/bgfactura/invoicing/internal/middleware"
)

// userView is a user with its company attached when one exists.
type userView struct {
	user.User
	Company *company.Company `json:"company,omitempty"`
}

type sessionResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    userView `json:"user"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.app.Auth.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sessionResponse{
		Message: "user registered successfully",
		Token:   session.Token,
		User:    userView{User: session.User},
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.app.Auth.Login(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sessionResponse{
		Message: "login successful",
		Token:   session.Token,
		User:    userView{User: session.User, Company: session.Company},
	})
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.app.Auth.Profile(r.Context(), internalmw.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, userView{User: profile.User, Company: profile.Company})
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in auth.UpdateProfileInput
	if err := h.decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	profile, err := h.app.Auth.UpdateProfile(r.Context(), internalmw.GetUserID(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, userView{User: profile.User, Company: profile.Company})
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	profile, err := h.app.Auth.Profile(r.Context(), internalmw.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user":  userView{User: profile.User, Company: profile.Company},
	})
}
