package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey int

const userIDKey ctxKey = 0

// UserID returns the authenticated user of a request that passed RequireUser.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	return strings.TrimSpace(token), ok && strings.TrimSpace(token) != ""
}

func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.Store.GetUserByUsername(in.Username)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		slog.Info("Login failed", "username", in.Username)
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := h.Auth.Issue(user)
	if err != nil {
		slog.Error("Failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	// Browsers also get a cookie session; the CLI only uses the bearer token.
	session, _ := h.SessionStore.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Options.Path = "/"
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	slog.Info("Login successful", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "identity": user.ID, "username": user.Username})
}

func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)
	delete(session.Values, "user_id")
	session.Options.MaxAge = -1 // Expire immediately
	session.Save(r, w)
	w.WriteHeader(http.StatusNoContent)
}

// CSRFToken hands cookie-session clients the token for unsafe requests.
func (h *APIHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.Token(r)})
}

// RequireUser accepts a bearer token or the cookie session set at login.
func (h *APIHandler) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userID string
		if token, ok := bearerToken(r); ok {
			claims, err := h.Auth.Validate(token)
			if err != nil {
				slog.Info("Rejected bearer token", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, "Session expired. Please log in again.")
				return
			}
			userID = claims.UserID
		} else {
			session, _ := h.SessionStore.Get(r, sessionName)
			userID, _ = session.Values["user_id"].(string)
		}
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "You must be logged in.")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}
