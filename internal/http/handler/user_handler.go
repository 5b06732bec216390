package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memberkit/credential-service/internal/http/middleware"
	"github.com/memberkit/credential-service/internal/http/response"
	"github.com/memberkit/credential-service/internal/observability"
	"github.com/memberkit/credential-service/internal/service"
)

type UserHandler struct {
	userSvc service.UserServiceInterface
}

func NewUserHandler(userSvc service.UserServiceInterface) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

func (h *UserHandler) Account(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	u, err := h.userSvc.GetByID(userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, newAccountView(u))
}

func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var req service.AccountUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.userSvc.UpdateAccount(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   "account.update",
		ActorUserID: formatID(userID),
		TargetType:  "user",
		TargetID:    formatID(userID),
		Action:      "update_account",
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusOK, newAccountView(u))
}

// MemberProfile serves both /members/{username} and
// /members/{username}/{section}.
func (h *UserHandler) MemberProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userSvc.Profile(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "section"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}
