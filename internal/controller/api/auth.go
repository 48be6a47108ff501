package api

import (
	"net/http"

	"github.com/queueless/booking/internal/model"
)

const refreshCookie = "refreshToken"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"accessToken"`
}

// register POST /auth/register, сразу открывает сессию
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.users.Register(r.Context(), req.Name, req.Email, req.Password); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	tokens, user, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setRefreshCookie(w, r, tokens.Refresh)
	writeJSON(w, http.StatusCreated, authResponse{User: user, AccessToken: tokens.Access})
}

// login POST /auth/login, вход по паролю
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, user, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setRefreshCookie(w, r, tokens.Refresh)
	writeJSON(w, http.StatusOK, authResponse{User: user, AccessToken: tokens.Access})
}

// refresh POST /auth/refresh: новый токен доступа по refresh cookie
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(refreshCookie); err == nil {
		token = c.Value
	}

	tokens, user, err := s.users.Refresh(r.Context(), token)
	if err != nil {
		s.clearRefreshCookie(w, r)
		s.writeServiceError(w, r, err)
		return
	}

	s.setRefreshCookie(w, r, tokens.Refresh)
	writeJSON(w, http.StatusOK, authResponse{User: user, AccessToken: tokens.Access})
}

// logout POST /auth/logout, гасит оба токена
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if c, err := r.Cookie(refreshCookie); err == nil {
		refreshToken = c.Value
	}

	if err := s.users.Logout(r.Context(), currentToken(r), refreshToken); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.clearRefreshCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// me GET /auth/me, текущий пользователь
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": currentUser(r)})
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/auth",
		MaxAge:   int(s.users.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
