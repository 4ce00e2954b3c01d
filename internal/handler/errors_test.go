package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/communityweb/strtracker/internal/common"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"report not found", domain.ErrReportNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"entry not found", fmt.Errorf("lookup: %w", domain.ErrEntryNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"anonymous", common.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad login", common.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", common.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"bad filename", domain.ErrInvalidFilename, http.StatusBadRequest, "BAD_REQUEST"},
		{"nothing to do", common.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST"},
		{"versions exhausted", domain.ErrTooManyVersions, http.StatusConflict, "CONFLICT"},
		{"too large", domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"`+tt.code+`"`)
			assert.NotContains(t, w.Body.String(), "disk on fire")
		})
	}
}

func TestRespondError_Validation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := fmt.Errorf("STR #3: %w", domain.FieldErrors{"summary": "required"}.AsError())
	respondError(c, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"details":{"summary":"required"}`)
}

func TestRespondError_Attachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, &domain.AttachmentError{ReportID: 12, Err: domain.ErrFileTooLarge})

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), `"details":{"str_id":12}`)
}
