package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Reportify/teleopsold-sub002/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// rbacErrorCases cover every sentinel the RBAC services return to callers.
var rbacErrorCases = []ErrorCase{
	{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Message: "permission denied"},
	{Err: usecase.ErrInvalidTenant, Status: http.StatusBadRequest, Message: "invalid tenant"},
	{Err: usecase.ErrTenantNotFound, Status: http.StatusNotFound, Message: "tenant not found"},
	{Err: usecase.ErrProfileNotFound, Status: http.StatusNotFound, Message: "user profile not found"},
	{Err: usecase.ErrPermissionNotFound, Status: http.StatusNotFound, Message: "permission not found"},
	{Err: usecase.ErrPermissionInactive, Status: http.StatusConflict, Message: "permission is inactive"},
	{Err: usecase.ErrDesignationNotFound, Status: http.StatusNotFound, Message: "designation not found"},
	{Err: usecase.ErrGroupNotFound, Status: http.StatusNotFound, Message: "permission group not found"},
	{Err: usecase.ErrAlreadyEnrolled, Status: http.StatusConflict, Message: "profile already enrolled in group"},
	{Err: usecase.ErrAssignmentNotFound, Status: http.StatusNotFound, Message: "assignment not found"},
	{Err: usecase.ErrOverrideNotFound, Status: http.StatusNotFound, Message: "override not found"},
	{Err: usecase.ErrInvalidPermissionLevel, Status: http.StatusBadRequest, Message: "level must be granted or denied"},
	{Err: usecase.ErrReasonRequired, Status: http.StatusBadRequest, Message: "override reason is required"},
	{Err: usecase.ErrInvalidDateRange, Status: http.StatusBadRequest, Message: "effective_to precedes effective_from"},
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
// Unmapped errors are attached to the gin context so the access log records them.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	_ = c.Error(err)
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
