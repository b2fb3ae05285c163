package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/eacrag/internal/middleware"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

func TestHandleErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		code   int
		detail string
	}{
		{fmt.Errorf("engine: %w", appErr.ErrNotReady), http.StatusServiceUnavailable, notReadyDetail},
		{fmt.Errorf("%w: query is required", appErr.ErrInvalid), http.StatusBadRequest, "invalid request"},
		{errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(resp)
		c.Request = httptest.NewRequest(http.MethodPost, "/chat", nil)
		c.Set(middleware.ContextRequestIDKey, "req-1")
		handleError(c, tc.err)
		require.Equal(t, tc.code, resp.Code, tc.err.Error())
		require.JSONEq(t, `{"detail":"`+tc.detail+`"}`, resp.Body.String())
	}
}
