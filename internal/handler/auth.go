package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/devdash/internal/apperror"
	"github.com/sakif/devdash/internal/auth"
	"github.com/sakif/devdash/internal/service"
)

// AuthHandler manages the GitHub OAuth login flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, hand it to the service, redirect
//
// DEPENDENCY CHAIN:
//   - auth   *service.AuthService → code exchange + user upsert
//   - states *auth.StateSigner    → signs/verifies the OAuth state (nil = off)
type AuthHandler struct {
	auth   *service.AuthService
	states *auth.StateSigner
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. A nil states disables the OAuth
// state check on both ends of the flow.
func NewAuthHandler(authService *service.AuthService, states *auth.StateSigner, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		states: states,
		logger: logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github
//
// CSRF PROTECTION VIA STATE:
// When a state signer is configured, the redirect carries a signed,
// 10-minute state token. GitHub echoes it back on the callback, where
// HandleGitHubCallback verifies the signature before doing anything else.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := ""
	if h.states != nil {
		var err error
		state, err = h.states.Issue()
		if err != nil {
			h.logger.Error("auth login: issuing state failed", slog.String("error", err.Error()))
			writeError(w, err)
			return
		}
	}

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusFound)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx[&state=yyy]
//
// FLOW:
//  1. Reject a provider error (user denied authorization)
//  2. Verify the state parameter, if state signing is on
//  3. Exchange the code and upsert the user (service layer)
//  4. Redirect to the dashboard page with the username
//
// Steps 1 and 2 fail with 400 before any call to GitHub. A missing code also
// fails with 400 from the service, again without any outbound call.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// --- Step 1: GitHub sent an error instead of a code ---
	if errParam := q.Get("error"); errParam != "" {
		h.logger.Warn("auth callback: authorization denied",
			slog.String("error", errParam),
			slog.String("description", q.Get("error_description")),
		)
		writeError(w, apperror.BadRequest("error", "GitHub authorization was denied"))
		return
	}

	// --- Step 2: CSRF state ---
	if h.states != nil {
		if err := h.states.Verify(q.Get("state")); err != nil {
			h.logger.Warn("auth callback: invalid state", slog.String("error", err.Error()))
			writeError(w, apperror.BadRequest("state", "Invalid OAuth state"))
			return
		}
	}

	// --- Step 3: exchange + upsert ---
	user, err := h.auth.CompleteGitHubLogin(r.Context(), q.Get("code"))
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, apperror.ErrBadRequest) {
			level = slog.LevelWarn
		}
		h.logger.Log(r.Context(), level, "auth callback failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	// --- Step 4: redirect to the dashboard page ---
	http.Redirect(w, r, "/dashboard.html?user="+url.QueryEscape(user.Username), http.StatusFound)
}
