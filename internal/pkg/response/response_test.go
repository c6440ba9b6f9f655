package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "rollcall-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFromError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, "check-in failed", fmt.Errorf("create: %w", xerrors.ErrAlreadyCheckedIn))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, c.IsAborted())

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "check-in failed", body.Message)
	assert.Equal(t, "ALREADY_CHECKED_IN", body.Code)
	assert.Contains(t, body.Detail, "already checked in today")
}

func TestUnauthorizedSetsChallenge(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Unauthorized(c, "missing authorization token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestSuccessDefaultsStatus(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, 0, "ok", gin.H{"id": 1})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"ok","data":{"id":1}}`, w.Body.String())
}

func TestErrorHidesUnmappedCauses(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, "failed to load event", fmt.Errorf("find event: %w", errors.New("dial tcp 10.0.0.5:5432: connection refused")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Equal(t, "internal server error", body.Detail)
	assert.Equal(t, "internal server error", body.Error)
	assert.Equal(t, "failed to load event", body.Message)
}
