package http

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"dental-screen/internal/domain/entity"
)

type authedHandler func(w http.ResponseWriter, r *http.Request, user *entity.User)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// requireAuth пропускает запрос дальше только с действующим Bearer-токеном
func (h *Handler) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			respondError(w, msgNotAuthenticated, http.StatusUnauthorized)
			return
		}

		user, err := h.c.AccountService.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			h.respondErr(w, r, err)
			return
		}

		next(w, r, user)
	}
}

// RegisterHandler обрабатывает POST /auth/register
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Cuerpo de la solicitud inválido", http.StatusBadRequest)
		return
	}

	token, _, err := h.c.AccountService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respondJSON(w, tokenResponse{AccessToken: token, TokenType: "bearer"}, http.StatusOK)
}

// LoginHandler принимает форму username/password или JSON email/password
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var email, password string

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, "Cuerpo de la solicitud inválido", http.StatusBadRequest)
			return
		}
		email, password = req.Email, req.Password
	} else {
		if err := r.ParseForm(); err != nil {
			respondError(w, "Formulario inválido", http.StatusBadRequest)
			return
		}
		email, password = r.PostForm.Get("username"), r.PostForm.Get("password")
	}

	token, err := h.c.AccountService.Login(r.Context(), email, password)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respondJSON(w, tokenResponse{AccessToken: token, TokenType: "bearer"}, http.StatusOK)
}

func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request, user *entity.User) {
	respondJSON(w, user, http.StatusOK)
}
