package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"vibedojo-ledger/handlers"
	"vibedojo-ledger/logger"
	"vibedojo-ledger/services"
	"vibedojo-ledger/store/storetest"
	"vibedojo-ledger/workers"
)

type fakeReconciler struct {
	runs int
}

func (r *fakeReconciler) Run(context.Context) (workers.ReconcileReport, error) {
	r.runs++
	return workers.ReconcileReport{Profiles: 3, Drifts: []workers.Drift{}}, nil
}

type testServer struct {
	app        *fiber.App
	reconciler *fakeReconciler
}

func newTestServer(t *testing.T, debug bool) *testServer {
	t.Helper()
	db := storetest.DB(t)
	log := logger.NewNop()
	timeout := 5 * time.Second

	curriculum := services.NewCurriculum()
	awards := services.NewAwardEngine(db, log, timeout)
	streaks := services.NewStreakTracker(db, log, timeout)
	detector := services.NewTransitionDetector(db, curriculum, log)
	profiles := services.NewProfileService(db, log, timeout)
	progress := services.NewProgressService(db, curriculum, timeout)
	badges := services.NewBadgeService(db, timeout)
	dashboard := services.NewDashboardService(db, streaks, profiles, badges, 16, time.Minute, log, timeout)
	community := services.NewCommunityService(db, awards, nil, nil, log, timeout)
	completion := services.NewCompletionService(db, curriculum, awards, detector, community, streaks, log, timeout)

	srv := &testServer{app: fiber.New(), reconciler: &fakeReconciler{}}
	handlers.SetupPublicRoutes(srv.app, curriculum, badges)
	handlers.SetupProgressionRoutes(srv.app, log, profiles, progress, badges, dashboard)
	handlers.SetupChapterRoutes(srv.app, log, progress, completion)
	handlers.SetupStreakRoutes(srv.app, log, streaks, awards, debug)
	handlers.SetupCommunityRoutes(srv.app, log, community)
	handlers.SetupAdminRoutes(srv.app, log, srv.reconciler)
	return srv
}

func (s *testServer) do(t *testing.T, method, path, userID, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestStreakEndpointReportsNewDayOnce(t *testing.T) {
	srv := newTestServer(t, false)

	status, body := srv.do(t, http.MethodPost, "/api/streak", "u1", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["isNewDay"])
	require.EqualValues(t, 1, body["currentStreak"])

	status, body = srv.do(t, http.MethodPost, "/api/streak", "u1", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, false, body["isNewDay"])
	require.EqualValues(t, 1, body["currentStreak"])
}

func TestSecuredRoutesRequireUser(t *testing.T) {
	srv := newTestServer(t, true)

	status, body := srv.do(t, http.MethodPost, "/api/streak", "", "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Contains(t, body["error"], "X-User-ID")

	status, _ = srv.do(t, http.MethodGet, "/api/debug/xp-logs?action=quiz_perfect", "", "")
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestCompleteChapterEndpoint(t *testing.T) {
	srv := newTestServer(t, true)
	payload := `{"difficultyRating":3,"satisfactionRating":4,"quizPerfect":true,"reviewText":"fun"}`

	status, body := srv.do(t, http.MethodPost, "/chapters/01/complete", "u1", payload)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 70, body["totalXp"])
	require.EqualValues(t, 70, body["appliedXp"])
	require.Equal(t, true, body["quizBonusApplied"])
	require.NotEmpty(t, body["reviewPostId"])
	require.NotNil(t, body["beltUp"])
	require.Len(t, body["newBadges"], 1)

	status, body = srv.do(t, http.MethodPost, "/chapters/01/complete", "u1", payload)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "failed to complete chapter", body["error"])

	status, body = srv.do(t, http.MethodGet, "/api/debug/xp-logs?action=quiz_perfect&referenceId=01", "u1", "")
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, body["count"])

	status, body = srv.do(t, http.MethodGet, "/user/progress", "u1", "")
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 70, body["total_xp"])
	require.EqualValues(t, 2, body["level"])
}

func TestCompleteChapterRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, false)

	status, _ := srv.do(t, http.MethodPost, "/chapters/01/complete", "u1", `{"difficultyRating":9,"satisfactionRating":4}`)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = srv.do(t, http.MethodPost, "/chapters/77/complete", "u1", `{"difficultyRating":3,"satisfactionRating":4}`)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = srv.do(t, http.MethodPost, "/chapters/01/complete", "u1", `{not json`)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestDebugEndpoint(t *testing.T) {
	srv := newTestServer(t, true)

	status, body := srv.do(t, http.MethodGet, "/api/debug/xp-logs?action=quiz_perfect&referenceId=01", "u1", "")
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 0, body["count"])

	status, _ = srv.do(t, http.MethodGet, "/api/debug/xp-logs?action=nope", "u1", "")
	require.Equal(t, http.StatusBadRequest, status)
}

func TestDebugEndpointDisabled(t *testing.T) {
	srv := newTestServer(t, false)

	status, _ := srv.do(t, http.MethodGet, "/api/debug/xp-logs?action=quiz_perfect", "u1", "")
	require.Equal(t, http.StatusNotFound, status)
}

func TestCommunityEndpoints(t *testing.T) {
	srv := newTestServer(t, true)

	status, body := srv.do(t, http.MethodPost, "/posts", "asker", `{"type":"question","title":"Gas fees?"}`)
	require.Equal(t, http.StatusCreated, status)
	post := body["post"].(map[string]interface{})
	postID := post["id"].(string)

	status, body = srv.do(t, http.MethodPost, "/posts/"+postID+"/comments", "helper", `{"body":"batch them"}`)
	require.Equal(t, http.StatusCreated, status)
	replyID := body["comment"].(map[string]interface{})["id"].(string)

	status, _ = srv.do(t, http.MethodPost, "/posts/"+postID+"/accept/"+replyID, "helper", "")
	require.Equal(t, http.StatusForbidden, status)

	status, body = srv.do(t, http.MethodPost, "/posts/"+postID+"/accept/"+replyID, "asker", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["applied"])

	status, body = srv.do(t, http.MethodPost, "/posts/"+postID+"/like", "asker", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["liked"])
	require.Equal(t, false, body["awarded"])

	status, _ = srv.do(t, http.MethodPost, "/posts/missing/like", "asker", "")
	require.Equal(t, http.StatusNotFound, status)
}

func TestPublicCatalogRoutes(t *testing.T) {
	srv := newTestServer(t, false)

	status, body := srv.do(t, http.MethodGet, "/chapters", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["parts"], 3)

	req := httptest.NewRequest(http.MethodGet, "/badges", nil)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminReconcileRequiresRole(t *testing.T) {
	srv := newTestServer(t, false)

	status, _ := srv.do(t, http.MethodPost, "/admin/ledger/reconcile", "u1", "")
	require.Equal(t, http.StatusForbidden, status)
	require.Zero(t, srv.reconciler.runs)

	req := httptest.NewRequest(http.MethodPost, "/admin/ledger/reconcile", nil)
	req.Header.Set("X-User-ID", "ops")
	req.Header.Set("X-User-Roles", "user, admin")
	status, body := srv.send(t, req)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 3, body["profiles"])
	require.Equal(t, 1, srv.reconciler.runs)
}

func TestDashboardEndpointTouchesStreakOnce(t *testing.T) {
	srv := newTestServer(t, false)

	status, body := srv.do(t, http.MethodGet, "/user/dashboard", "u1", "")
	require.Equal(t, http.StatusOK, status)
	streak := body["streak"].(map[string]interface{})
	require.Equal(t, true, streak["isNewDay"])

	status, body = srv.do(t, http.MethodGet, "/user/dashboard", "u1", "")
	require.Equal(t, http.StatusOK, status)
	streak = body["streak"].(map[string]interface{})
	require.Equal(t, false, streak["isNewDay"])
	require.EqualValues(t, 1, streak["currentStreak"])
}
