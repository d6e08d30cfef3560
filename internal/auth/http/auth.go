package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/internal/auth/service"
	"github.com/tovera/authcore/pkg/httpx"
	"github.com/tovera/authcore/pkg/slogx"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// handleRegister handles POST /v1/auth/register.
func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body registerRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	account, err := r.AccountService.Register(ctx, body.Username, body.Email, body.Password)
	if err != nil {
		var policyErr *service.PasswordPolicyError
		switch {
		case errors.Is(err, service.ErrMissingField):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username, email, and password are required")
		case errors.As(err, &policyErr):
			writePolicyError(w, policyErr)
		case errors.Is(err, service.ErrAccountExists):
			httpx.WriteError(w, http.StatusConflict, "already_exists", "username or email already registered")
		default:
			slogx.FromContext(ctx).Error("registration failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, accountResponse{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		Role:     account.Role,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status          string `json:"status"`
	SessionToken    string `json:"session_token,omitempty"`
	ChallengeID     string `json:"challenge_id,omitempty"`
	PasswordExpired bool   `json:"password_expired,omitempty"`

	Account *accountResponse `json:"account,omitempty"`

	// BackupCodesRemaining is present only after a backup-code login.
	BackupCodesRemaining *int `json:"backup_codes_remaining,omitempty"`
}

// handleLogin handles POST /v1/auth/login.
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body loginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if body.Username == "" || body.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	result, err := r.LoginService.Login(ctx, body.Username, body.Password)
	if err != nil {
		slogx.FromContext(ctx).Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	r.writeLoginResult(ctx, w, result)
}

type twoFactorLoginRequest struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
	Method      string `json:"method"` // "totp" (default) or "backup_code"
}

// handleLoginTwoFactor handles POST /v1/auth/login/2fa.
func (r *Router) handleLoginTwoFactor(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var body twoFactorLoginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if body.ChallengeID == "" || body.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "challenge_id and code are required")
		return
	}
	if body.Method == "" {
		body.Method = service.MethodTOTP
	}

	result, err := r.LoginService.CompleteTwoFactor(ctx, body.ChallengeID, body.Code, body.Method)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidChallenge):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_challenge", "challenge is invalid or expired")
		case errors.Is(err, service.ErrTooManyAttempts):
			httpx.WriteError(w, http.StatusUnauthorized, "too_many_attempts", "challenge cancelled, log in again")
		case errors.Is(err, service.ErrInvalidTwoFactor):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_code", "the code was not accepted")
		case errors.Is(err, service.ErrInvalidMethod):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown verification method")
		case errors.Is(err, service.ErrTwoFactorNotReady):
			httpx.WriteError(w, http.StatusConflict, "setup_required", "two-factor setup has not been completed")
		default:
			slogx.FromContext(ctx).Error("two-factor login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	r.writeLoginResult(ctx, w, result)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// handleChangePassword handles POST /v1/auth/password.
func (r *Router) handleChangePassword(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	accountID := accountIDFromContext(ctx)

	var body changePasswordRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	err := r.AccountService.ChangePassword(ctx, accountID, body.OldPassword, body.NewPassword)
	if err != nil {
		var policyErr *service.PasswordPolicyError
		switch {
		case errors.Is(err, service.ErrMissingField):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "new_password is required")
		case errors.Is(err, service.ErrWrongOldPassword):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "current password does not match")
		case errors.As(err, &policyErr):
			writePolicyError(w, policyErr)
		case errors.Is(err, service.ErrPasswordReused):
			httpx.WriteError(w, http.StatusBadRequest, "password_reused", "the new password was used recently")
		default:
			slogx.FromContext(ctx).Error("password change failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	// Other sessions of this account are no longer trustworthy.
	if err := r.SessionService.RevokeAll(ctx, accountID); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke sessions after password change", "err", err)
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "changed"})
}

// writeLoginResult maps the login machine's terminal state onto a response.
// Invalid results never say whether the username exists.
func (r *Router) writeLoginResult(ctx context.Context, w http.ResponseWriter, result domain.LoginResult) {
	switch result.Status {
	case domain.LoginInvalid:
		// One fixed body for every invalid login. Surfacing the failure
		// counter here would distinguish unknown usernames (which have no
		// counter) from wrong passwords by response shape.
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")

	case domain.LoginLockedOut:
		httpx.WriteJSON(w, http.StatusUnauthorized, struct {
			httpx.ErrorResponse
			RetryAfterMinutes int `json:"retry_after_minutes"`
		}{
			httpx.ErrorResponse{Error: "account_locked", Description: "too many failed attempts"},
			result.RemainingMinutes,
		})

	case domain.LoginTwoFactorSetupRequired:
		httpx.WriteJSON(w, http.StatusOK, loginResponse{
			Status:          "2fa_setup_required",
			PasswordExpired: result.PasswordExpired,
		})

	case domain.LoginTwoFactorPending:
		httpx.WriteJSON(w, http.StatusOK, loginResponse{
			Status:          "2fa_required",
			ChallengeID:     result.ChallengeID,
			PasswordExpired: result.PasswordExpired,
		})

	case domain.LoginAuthenticated:
		token, err := r.SessionService.Issue(ctx, result.Account.ID)
		if err != nil {
			slogx.FromContext(ctx).Error("failed to issue session", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
			return
		}

		resp := loginResponse{
			Status:          "authenticated",
			SessionToken:    token,
			PasswordExpired: result.PasswordExpired,
			Account: &accountResponse{
				ID:       result.Account.ID,
				Username: result.Account.Username,
				Email:    result.Account.Email,
				Role:     result.Account.Role,
			},
		}
		if result.BackupCodesRemaining >= 0 {
			n := result.BackupCodesRemaining
			resp.BackupCodesRemaining = &n
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}

func writePolicyError(w http.ResponseWriter, policyErr *service.PasswordPolicyError) {
	violations := make([]string, len(policyErr.Violations))
	for i, v := range policyErr.Violations {
		violations[i] = string(v)
	}
	httpx.WriteJSON(w, http.StatusBadRequest, struct {
		httpx.ErrorResponse
		Violations []string `json:"violations"`
	}{
		httpx.ErrorResponse{Error: "weak_password", Description: "password does not meet the policy"},
		violations,
	})
}
