package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/memberkit/credential-service/internal/http/middleware"
	"github.com/memberkit/credential-service/internal/http/response"
	"github.com/memberkit/credential-service/internal/observability"
	"github.com/memberkit/credential-service/internal/service"
)

type AuthHandler struct {
	accountSvc service.AccountServiceInterface
}

func NewAuthHandler(accountSvc service.AccountServiceInterface) *AuthHandler {
	return &AuthHandler{accountSvc: accountSvc}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type emailTokenRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Identity string `json:"identity"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.accountSvc.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		observability.Audit(r, observability.AuditInput{EventName: "account.register", Action: "register", Outcome: "failure", Reason: auditReason(err)})
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   "account.register",
		ActorUserID: formatID(result.User.ID),
		TargetType:  "user",
		TargetID:    formatID(result.User.ID),
		Action:      "register",
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"user":                newAccountView(result.User),
		"activation_required": result.ActivationRequired,
	})
}

func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req emailTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accountSvc.Activate(r.Context(), req.Email, req.Token); err != nil {
		observability.Audit(r, observability.AuditInput{EventName: "account.activate", Action: "activate", Outcome: "failure", Reason: auditReason(err)})
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, observability.AuditInput{EventName: "account.activate", Action: "activate", Outcome: "success"})
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "activated"})
}

// ResendActivation answers identically whether or not the address is known.
func (h *AuthHandler) ResendActivation(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accountSvc.ResendActivation(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identity := firstNonEmpty(req.Identity, req.Email, req.Username)
	result, err := h.accountSvc.Login(r.Context(), identity, req.Password, r.UserAgent(), clientIP(r))
	if err != nil {
		observability.Audit(r, observability.AuditInput{EventName: "account.login", Action: "login", Outcome: "failure", Reason: auditReason(err)})
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   "account.login",
		ActorUserID: formatID(result.User.ID),
		TargetType:  "user",
		TargetID:    formatID(result.User.ID),
		Action:      "login",
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{
		"access_token": result.AccessToken,
		"token_type":   result.TokenType,
		"expires_at":   result.ExpiresAt,
		"user":         newAccountView(result.User),
	})
}

// ForgotPassword answers identically whether or not the address is known.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accountSvc.ForgotPassword(r.Context(), req.Email, clientIP(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, observability.AuditInput{EventName: "account.password.forgot", Action: "forgot_password", Outcome: "accepted"})
	response.JSON(w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accountSvc.ResetPassword(r.Context(), req.Email, req.Token, req.NewPassword, clientIP(r)); err != nil {
		observability.Audit(r, observability.AuditInput{EventName: "account.password.reset", Action: "reset_password", Outcome: "failure", Reason: auditReason(err)})
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, observability.AuditInput{EventName: "account.password.reset", Action: "reset_password", Outcome: "success"})
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "password_reset"})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accountSvc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		observability.Audit(r, observability.AuditInput{EventName: "account.password.change", ActorUserID: formatID(userID), Action: "change_password", Outcome: "failure", Reason: auditReason(err)})
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   "account.password.change",
		ActorUserID: formatID(userID),
		TargetType:  "user",
		TargetID:    formatID(userID),
		Action:      "change_password",
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "password_changed"})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func auditReason(err error) string {
	if err == nil {
		return ""
	}
	reason := err.Error()
	if i := strings.IndexByte(reason, ':'); i > 0 {
		reason = reason[:i]
	}
	return strings.ReplaceAll(reason, " ", "_")
}
