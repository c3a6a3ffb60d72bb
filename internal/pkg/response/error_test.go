package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/nekogravitycat/group-scheduler/internal/pkg/apperror"
)

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantBody   string
		wantLogged string
	}{
		{"App error", apperror.New(http.StatusBadRequest, "bad date"), http.StatusBadRequest, `{"error":"bad date"}`, ""},
		{"Wrapped app error", fmt.Errorf("handler: %w", apperror.Wrap(errors.New("pg down"), http.StatusConflict, "busy")), http.StatusConflict, `{"error":"busy"}`, "pg down"},
		{"Unknown error is hidden", errors.New("pg down"), http.StatusInternalServerError, `{"error":"internal server error"}`, "pg down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Error(c, tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			if tt.wantLogged == "" {
				assert.Empty(t, c.Errors)
			} else {
				assert.Contains(t, c.Errors.String(), tt.wantLogged)
			}
		})
	}
}
