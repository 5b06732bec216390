package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/memberkit/credential-service/internal/domain"
	"github.com/memberkit/credential-service/internal/http/middleware"
	"github.com/memberkit/credential-service/internal/http/response"
	"github.com/memberkit/credential-service/internal/observability"
	"github.com/memberkit/credential-service/internal/repository"
	"github.com/memberkit/credential-service/internal/service"
)

const maxBanReasonLength = 255

type AdminHandler struct {
	accountSvc service.AccountServiceInterface
	userSvc    service.UserServiceInterface
}

func NewAdminHandler(accountSvc service.AccountServiceInterface, userSvc service.UserServiceInterface) *AdminHandler {
	return &AdminHandler{accountSvc: accountSvc, userSvc: userSvc}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	page, err := h.userSvc.List(pageReq.Page, pageReq.PageSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items := make([]adminUserView, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, newAdminUserView(&page.Items[i]))
	}
	response.JSON(w, r, http.StatusOK, paginatedData(items, page.Page, page.PageSize, page.Total, page.TotalPages))
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	u, err := h.userSvc.GetByID(userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, newAdminUserView(u))
}

func (h *AdminHandler) Ban(w http.ResponseWriter, r *http.Request) {
	actorID, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if actorID == targetID {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "admins cannot ban themselves", nil)
		return
	}
	reason := strings.TrimSpace(body.Reason)
	if len(reason) > maxBanReasonLength {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("reason must be at most %d characters", maxBanReasonLength), nil)
		return
	}
	u, err := h.accountSvc.Ban(r.Context(), targetID, reason)
	h.respondMutation(w, r, "admin.user.banned", "ban", actorID, targetID, u, err)
}

func (h *AdminHandler) Unban(w http.ResponseWriter, r *http.Request) {
	actorID, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	u, err := h.accountSvc.Unban(r.Context(), targetID)
	h.respondMutation(w, r, "admin.user.unbanned", "unban", actorID, targetID, u, err)
}

func (h *AdminHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	actorID, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	var body struct {
		Permissions []string `json:"permissions"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Permissions == nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "permissions is required", nil)
		return
	}
	u, err := h.accountSvc.SetPermissions(r.Context(), targetID, body.Permissions)
	h.respondMutation(w, r, "admin.user.permissions.updated", "set_permissions", actorID, targetID, u, err)
}

func (h *AdminHandler) actorAndTarget(w http.ResponseWriter, r *http.Request) (uint, uint, bool) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return 0, 0, false
	}
	targetID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return 0, 0, false
	}
	return actorID, targetID, true
}

func (h *AdminHandler) respondMutation(w http.ResponseWriter, r *http.Request, event, action string, actorID, targetID uint, u *domain.User, err error) {
	in := observability.AuditInput{
		EventName:   event,
		ActorUserID: formatID(actorID),
		TargetType:  "user",
		TargetID:    formatID(targetID),
		Action:      action,
		Outcome:     "success",
	}
	if err != nil {
		in.Outcome = "failure"
		in.Reason = auditReason(err)
		observability.Audit(r, in)
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, in)
	response.JSON(w, r, http.StatusOK, newAdminUserView(u))
}

func parsePathID(input string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(input), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(n), nil
}

func parsePageRequest(r *http.Request) (repository.PageRequest, error) {
	page := repository.DefaultPage
	pageSize := repository.DefaultPageSize
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return repository.PageRequest{}, errors.New("page must be a positive integer")
		}
		page = v
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("page_size")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return repository.PageRequest{}, errors.New("page_size must be a positive integer")
		}
		if v > repository.MaxPageSize {
			return repository.PageRequest{}, fmt.Errorf("page_size must be <= %d", repository.MaxPageSize)
		}
		pageSize = v
	}
	return repository.PageRequest{Page: page, PageSize: pageSize}, nil
}

func paginatedData[T any](items []T, page, pageSize int, total int64, totalPages int) map[string]any {
	return map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
		},
	}
}
