package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/pkg/httpx"
	"github.com/tovera/authcore/pkg/slogx"
)

type settingsPayload struct {
	MinPasswordLength      int  `json:"min_password_length"`
	RequireUppercase       bool `json:"require_uppercase"`
	RequireLowercase       bool `json:"require_lowercase"`
	RequireDigit           bool `json:"require_digit"`
	RequireSpecial         bool `json:"require_special"`
	PasswordExpiryDays     int  `json:"password_expiry_days"`
	PasswordHistoryDepth   int  `json:"password_history_depth"`
	FailedLoginAttempts    int  `json:"failed_login_attempts"`
	LockoutDurationMinutes int  `json:"lockout_duration_minutes"`
	TwoFactorEnabled       bool `json:"two_factor_enabled"`
	TwoFactorActivated     bool `json:"two_factor_activated"`
}

func settingsToPayload(s domain.SecuritySettings) settingsPayload {
	return settingsPayload(s)
}

// handleGetSettings handles GET /v1/admin/settings.
func (r *Router) handleGetSettings(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	settings, err := r.AdminService.GetSettings(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load settings", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, settingsToPayload(settings))
}

// handleUpdateSettings handles PUT /v1/admin/settings.
func (r *Router) handleUpdateSettings(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	actorID := accountIDFromContext(ctx)

	var body settingsPayload
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if body.MinPasswordLength < 1 || body.FailedLoginAttempts < 1 || body.LockoutDurationMinutes < 1 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "thresholds must be positive")
		return
	}

	if err := r.AdminService.UpdateSettings(ctx, actorID, domain.SecuritySettings(body)); err != nil {
		slogx.FromContext(ctx).Error("failed to update settings", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleResetTwoFactor handles POST /v1/admin/2fa/reset/{id}.
func (r *Router) handleResetTwoFactor(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	actorID := accountIDFromContext(ctx)
	accountID := req.PathValue("id")

	if err := r.AdminService.ResetTwoFactor(ctx, actorID, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "account not found")
			return
		}
		slogx.FromContext(ctx).Error("two-factor reset failed", "err", err, "account_id", accountID)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleResetTwoFactorAll handles POST /v1/admin/2fa/reset-all.
func (r *Router) handleResetTwoFactorAll(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	actorID := accountIDFromContext(ctx)

	count, err := r.AdminService.ResetTwoFactorAll(ctx, actorID)
	if err != nil {
		slogx.FromContext(ctx).Error("two-factor reset-all failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "reset", "accounts": count})
}
