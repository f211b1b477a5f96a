package httpapi

import (
	"net/http"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/service"

	"go.uber.org/zap"
)

type AuthHandler struct {
	authService  service.AuthService
	maxBodyBytes int64
	logger       *zap.Logger
}

func NewAuthHandler(authService service.AuthService, maxBodyBytes int64, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, maxBodyBytes: maxBodyBytes, logger: logger}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := readBodyJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := readBodyJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.IPAddress = clientIP(r)
	req.UserAgent = r.UserAgent()

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.CodeUnauthorized, "not authenticated"))
		return
	}

	user, err := h.authService.Me(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
