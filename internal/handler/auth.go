package handler

import (
	"net/http"

	"winshirt-sync/internal/middleware"
	"winshirt-sync/internal/model"
	"winshirt-sync/internal/service"
	"winshirt-sync/pkg/apierror"
	"winshirt-sync/pkg/response"
)

// AuthHandler handles storefront account requests.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// CredentialsRequest is the body of sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInResponse carries the session token of a signed-in account.
type SignInResponse struct {
	Token     string         `json:"token"`
	ExpiresIn int            `json:"expiresIn"`
	Account   *model.Account `json:"account"`
}

// SignUp handles POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	account, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, account)
}

// SignIn handles POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, account, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, SignInResponse{
		Token:     token,
		ExpiresIn: int(service.TokenTTL.Seconds()),
		Account:   account,
	})
}

// Resend handles POST /auth/resend
func (h *AuthHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.auth.ResendConfirmation(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "sent"})
}

// Confirm handles POST /auth/confirm
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Token == "" {
		writeError(w, r, apierror.BadRequest("token is required"))
		return
	}
	account, err := h.auth.Confirm(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, account)
}

// SignOut handles POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)
	if token == "" {
		writeError(w, r, apierror.BadRequest("X-Token header required"))
		return
	}
	if err := h.auth.SignOut(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "revoked"})
}
