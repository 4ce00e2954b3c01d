package handler

import (
	"errors"
	"net/http"

	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/middleware"
	"github.com/communityweb/strtracker/pkg/ginutil"
	pkglogger "github.com/communityweb/strtracker/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var attachErr *domain.AttachmentError
	if errors.As(err, &attachErr) {
		status, message := statusOf(attachErr.Err)
		if status == http.StatusInternalServerError {
			message = "Attachment could not be stored"
		}
		common.ErrorDetailResponse(c, status, message, gin.H{"str_id": attachErr.ReportID}, err)
		return
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		_ = c.Error(err)
		common.ValidationErrorResponse(c, validationErr.Fields)
		return
	}

	status, message := statusOf(err)
	if status == http.StatusInternalServerError {
		log := pkglogger.WithRequestID(middleware.GetRequestID(c))
		log.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
	}
	common.ErrorResponse(c, status, message, err)
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrReportNotFound):
		return http.StatusNotFound, "STR not found"
	case errors.Is(err, domain.ErrEntryNotFound), errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, "Login required"
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "Permission denied"
	case errors.Is(err, domain.ErrInvalidFilename):
		return http.StatusBadRequest, "Invalid attachment filename"
	case errors.Is(err, domain.ErrEmptyContent):
		return http.StatusBadRequest, "Content is empty"
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest, "Nothing to change"
	case errors.Is(err, domain.ErrTooManyVersions):
		return http.StatusConflict, "Too many attachments with this name"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "Attachment is too large"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// bindError reports a request binding failure. Validator failures carry a
// field -> tag map; anything else is a malformed body.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		_ = c.Error(err)
		common.ValidationErrorResponse(c, fields)
		return
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		common.ErrorResponse(c, http.StatusRequestEntityTooLarge, "Request body too large", err)
		return
	}
	common.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
}

// paramID reads a numeric path parameter, responding 400 when it is malformed
func paramID(c *gin.Context, key string) (int, bool) {
	id, ok := ginutil.ParamID(c, key)
	if !ok {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid "+key, nil)
	}
	return id, ok
}
