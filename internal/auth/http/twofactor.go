package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tovera/authcore/internal/auth/service"
	"github.com/tovera/authcore/pkg/httpx"
	"github.com/tovera/authcore/pkg/slogx"
)

type twoFactorSetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// handleTwoFactorSetup handles POST /v1/2fa/setup. Replaces any existing
// secret for the account, verified or not.
func (r *Router) handleTwoFactorSetup(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	accountID := accountIDFromContext(ctx)

	setup, err := r.TwoFactorService.BeginSetup(ctx, accountID)
	if err != nil {
		slogx.FromContext(ctx).Error("two-factor setup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, twoFactorSetupResponse{
		Secret:          setup.Secret,
		ProvisioningURI: setup.ProvisioningURI,
	})
}

type setupCompleteRequest struct {
	Code string `json:"code"`
}

type setupCompleteResponse struct {
	// BackupCodes are shown exactly once; only their consumption state is
	// stored.
	BackupCodes []string `json:"backup_codes"`
}

// handleTwoFactorSetupComplete handles POST /v1/2fa/setup/complete.
func (r *Router) handleTwoFactorSetupComplete(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	accountID := accountIDFromContext(ctx)

	var body setupCompleteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	codes, err := r.TwoFactorService.CompleteSetup(ctx, accountID, body.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoPendingSetup):
			httpx.WriteError(w, http.StatusConflict, "no_pending_setup", "start setup first")
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_code", "the code was not accepted")
		default:
			slogx.FromContext(ctx).Error("two-factor setup completion failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, setupCompleteResponse{BackupCodes: codes})
}

// handleTwoFactorDisable handles POST /v1/2fa/disable. Idempotent.
func (r *Router) handleTwoFactorDisable(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	accountID := accountIDFromContext(ctx)

	if err := r.TwoFactorService.Disable(ctx, accountID); err != nil {
		slogx.FromContext(ctx).Error("two-factor disable failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

// handleRegenerateBackupCodes handles POST /v1/2fa/backup-codes.
func (r *Router) handleRegenerateBackupCodes(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	accountID := accountIDFromContext(ctx)

	codes, err := r.TwoFactorService.RegenerateBackupCodes(ctx, accountID)
	if err != nil {
		if errors.Is(err, service.ErrTwoFactorNotActive) {
			httpx.WriteError(w, http.StatusConflict, "not_enabled", "two-factor authentication is not active")
			return
		}
		slogx.FromContext(ctx).Error("backup code regeneration failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, setupCompleteResponse{BackupCodes: codes})
}
