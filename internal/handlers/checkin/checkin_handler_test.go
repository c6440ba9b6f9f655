package checkin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rollcall-service/internal/domain/checkin"
	"rollcall-service/internal/domain/streakfreeze"
	"rollcall-service/internal/domain/user"
	xerrors "rollcall-service/internal/pkg/errors"
	"rollcall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	createErr error
	created   *checkin.CreateRequest
	username  string
	query     checkin.ListQuery
	deletedBy struct {
		userID  int64
		isAdmin bool
	}
}

func (f *fakeService) Create(_ context.Context, userID int64, username string, req *checkin.CreateRequest) (*checkin.Checkin, error) {
	f.created, f.username = req, username
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &checkin.Checkin{ID: 1, UserID: userID, EventID: req.EventID, StreakCount: 3}, nil
}

func (f *fakeService) List(_ context.Context, userID int64, q checkin.ListQuery) ([]*checkin.Checkin, error) {
	f.query = q
	return []*checkin.Checkin{{ID: 1, UserID: userID}}, nil
}

func (f *fakeService) ListByEvent(context.Context, int64, int64, int, int) ([]*checkin.Checkin, error) {
	return nil, xerrors.ErrNotParticipant
}

func (f *fakeService) Get(_ context.Context, _ int64, id int64) (*checkin.Checkin, error) {
	if id != 1 {
		return nil, xerrors.ErrNotFound
	}
	return &checkin.Checkin{ID: 1}, nil
}

func (f *fakeService) Latest(context.Context, int64) (*checkin.Checkin, error) {
	return nil, fmt.Errorf("latest: %w", xerrors.ErrNotFound)
}

func (f *fakeService) Delete(_ context.Context, userID int64, isAdmin bool, _ int64) error {
	f.deletedBy.userID, f.deletedBy.isAdmin = userID, isAdmin
	return nil
}

func (f *fakeService) StreakSummary(_ context.Context, userID, eventID int64) (*checkin.StreakSummary, error) {
	return &checkin.StreakSummary{UserID: userID, EventID: eventID, CurrentStreak: 4}, nil
}

func (f *fakeService) Summaries(context.Context, int64) ([]*checkin.StreakSummary, error) {
	return []*checkin.StreakSummary{{EventID: 1}, {EventID: 2}}, nil
}

type fakeFreezes struct{ grantedBy bool }

func (f *fakeFreezes) Available(_ context.Context, userID, eventID int64) ([]*streakfreeze.StreakFreeze, error) {
	return []*streakfreeze.StreakFreeze{{ID: 1, UserID: userID, EventID: eventID}}, nil
}

func (f *fakeFreezes) Grant(_ context.Context, isAdmin bool, eventID int64, req *streakfreeze.GrantRequest) (*streakfreeze.StreakFreeze, error) {
	f.grantedBy = isAdmin
	if !isAdmin {
		return nil, xerrors.ErrForbidden
	}
	return &streakfreeze.StreakFreeze{ID: 2, UserID: req.UserID, EventID: eventID}, nil
}

// as stands in for the auth middleware
func as(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", int64(7))
		c.Set("username", "ada")
		c.Set("role", role)
		c.Next()
	}
}

func newRouter(svc *fakeService, freezes *fakeFreezes, role string) *gin.Engine {
	h := NewCheckinHandler(svc, zap.NewNop())
	fh := NewFreezeHandler(freezes)

	r := gin.New()
	r.Use(as(role))
	r.POST("/checkins", h.Create)
	r.GET("/checkins", h.List)
	r.GET("/checkins/latest", h.Latest)
	r.GET("/checkins/streaks", h.Streaks)
	r.GET("/checkins/:id", h.Get)
	r.DELETE("/checkins/:id", h.Delete)
	r.GET("/events/:id/checkins", h.ListByEvent)
	r.GET("/events/:id/streak", h.EventStreak)
	r.GET("/events/:id/freezes", fh.Available)
	r.POST("/events/:id/freezes", fh.Grant)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateCheckin(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, &fakeFreezes{}, user.RoleUser)

	w := do(r, http.MethodPost, "/checkins", `{"event_id":3,"note":"done","mood":"great"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(3), svc.created.EventID)
	assert.Equal(t, "ada", svc.username)
	assert.True(t, decode(t, w).Success)
}

func TestCreateCheckinValidation(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, &fakeFreezes{}, user.RoleUser)

	w := do(r, http.MethodPost, "/checkins", `{"note":"no event"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.created)

	w = do(r, http.MethodPost, "/checkins", fmt.Sprintf(`{"event_id":1,"note":%q}`, strings.Repeat("x", 501)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCheckinTwiceSameDay(t *testing.T) {
	svc := &fakeService{createErr: fmt.Errorf("record: %w", xerrors.ErrAlreadyCheckedIn)}
	r := newRouter(svc, &fakeFreezes{}, user.RoleUser)

	w := do(r, http.MethodPost, "/checkins", `{"event_id":3}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ALREADY_CHECKED_IN", body.Code)
	assert.Contains(t, body.Detail, "already checked in today")
}

func TestListCheckinsBindsQuery(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, &fakeFreezes{}, user.RoleUser)

	w := do(r, http.MethodGet, "/checkins?event_id=2&skip=10&limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, checkin.ListQuery{EventID: 2, Skip: 10, Limit: 5}, svc.query)

	w = do(r, http.MethodGet, "/checkins?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckinReadErrors(t *testing.T) {
	r := newRouter(&fakeService{}, &fakeFreezes{}, user.RoleUser)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/checkins/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/checkins/2", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/checkins/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/checkins/latest", "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/events/4/checkins", "").Code)
}

func TestDeleteCheckinPassesRole(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, &fakeFreezes{}, user.RoleAdmin)

	w := do(r, http.MethodDelete, "/checkins/1", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(7), svc.deletedBy.userID)
	assert.True(t, svc.deletedBy.isAdmin)
}

func TestStreakEndpoints(t *testing.T) {
	r := newRouter(&fakeService{}, &fakeFreezes{}, user.RoleUser)

	w := do(r, http.MethodGet, "/checkins/streaks", "")
	assert.Equal(t, http.StatusOK, w.Code)
	list, ok := decode(t, w).Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, list, 2)

	w = do(r, http.MethodGet, "/events/5/streak", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, float64(5), data["event_id"])
	assert.Equal(t, float64(4), data["current_streak"])
}

func TestFreezeGrantRequiresAdmin(t *testing.T) {
	expiry := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	body := fmt.Sprintf(`{"user_id":9,"expiry_date":%q}`, expiry)

	freezes := &fakeFreezes{}
	w := do(newRouter(&fakeService{}, freezes, user.RoleUser), http.MethodPost, "/events/3/freezes", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, freezes.grantedBy)

	w = do(newRouter(&fakeService{}, freezes, user.RoleAdmin), http.MethodPost, "/events/3/freezes", body)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, freezes.grantedBy)

	w = do(newRouter(&fakeService{}, freezes, user.RoleAdmin), http.MethodPost, "/events/3/freezes", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFreezeAvailable(t *testing.T) {
	w := do(newRouter(&fakeService{}, &fakeFreezes{}, user.RoleUser), http.MethodGet, "/events/3/freezes", "")

	assert.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w).Data.([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, float64(7), list[0].(map[string]interface{})["user_id"])
}
