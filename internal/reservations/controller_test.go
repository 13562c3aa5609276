package reservations_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/reservations"
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnvelope struct {
	Status     string                 `json:"status"`
	StatusCode int                    `json:"status_code"`
	Message    string                 `json:"message"`
	Data       json.RawMessage        `json:"data"`
	Errors     map[string]interface{} `json:"errors"`
}

type apiHarness struct {
	fx     *fixture
	cfg    *config.Config
	router *gin.Engine
}

func newAPIHarness(t *testing.T, opts ...fixtureOption) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fx := newFixture(t, opts...)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", Issuer: "stablehub-test"}}

	router := gin.New()
	reservations.SetupReservationRoutes(router.Group("/api/v1"), reservations.NewController(fx.svc), cfg)
	return &apiHarness{fx: fx, cfg: cfg, router: router}
}

func (h *apiHarness) do(t *testing.T, actor *access.Actor, method, path string, body interface{}) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := middleware.IssueAccessToken(h.cfg.JWT, *actor, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env apiEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestCreateReservationEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	body := h.fx.request(monday(10, 0), monday(11, 0), 2)

	w, env := h.do(t, &h.fx.member, http.MethodPost, "/api/v1/facility-reservations", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "success", env.Status)

	var created reservations.Reservation
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, reservations.StatusPending, created.Status)
	assert.Equal(t, h.fx.member.ID, created.UserID)
	assert.Len(t, created.HorseIDs, 2)
}

func TestCreateReservationEndpointConflicts(t *testing.T) {
	h := newAPIHarness(t)

	w, env := h.do(t, &h.fx.member, http.MethodPost, "/api/v1/facility-reservations", h.fx.request(monday(18, 0), monday(19, 0), 1))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AVAILABILITY_CONFLICT", env.Errors["code"])
	assert.Equal(t, "outside_hours", env.Errors["reason"])
	assert.Equal(t, []interface{}{map[string]interface{}{"startTime": "09:00", "endTime": "17:00"}}, env.Errors["effectiveBlocks"])

	h.fx.mustCreate(h.fx.member, monday(10, 0), monday(11, 0), 2)
	w, env = h.do(t, &h.fx.member, http.MethodPost, "/api/v1/facility-reservations", h.fx.request(monday(10, 30), monday(10, 45), 1))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CAPACITY_EXCEEDED", env.Errors["code"])
	assert.EqualValues(t, 3, env.Errors["peakOccupancy"])
	assert.EqualValues(t, 2, env.Errors["maxConcurrent"])
}

func TestCreateReservationEndpointValidation(t *testing.T) {
	h := newAPIHarness(t)

	w, env := h.do(t, &h.fx.member, http.MethodPost, "/api/v1/facility-reservations", map[string]interface{}{
		"facilityId": "not-a-uuid",
		"startTime":  monday(10, 0),
		"endTime":    monday(11, 0),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Errors["code"])

	w, env = h.do(t, &h.fx.member, http.MethodPost, "/api/v1/facility-reservations", h.fx.request(monday(10, 0), monday(11, 0), 0))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "HORSES_REQUIRED", env.Errors["code"])
}

func TestEndpointsRequireToken(t *testing.T) {
	h := newAPIHarness(t)

	w, env := h.do(t, nil, http.MethodGet, "/api/v1/facility-reservations", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "error", env.Status)

	forged, err := middleware.IssueAccessToken(config.JWTConfig{Secret: "other"}, h.fx.member, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/facility-reservations", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTransitionEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	r := h.fx.mustCreate(h.fx.member, monday(10, 0), monday(11, 0), 1)
	base := "/api/v1/facility-reservations/" + r.ID.String()

	w, env := h.do(t, &h.fx.member, http.MethodPost, base+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Errors["code"])

	w, env = h.do(t, &h.fx.member, http.MethodPost, base+"/cancel", map[string]string{"reason": "weather"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out reservations.TransitionResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, out.Success)
	assert.Equal(t, r.ID, out.ID)
	assert.Equal(t, reservations.StatusCancelled, out.Status)

	// Cancelling again is a no-op.
	w, _ = h.do(t, &h.fx.member, http.MethodPost, base+"/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(t, &h.fx.manager, http.MethodPost, base+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", env.Errors["code"])
}

func TestGetAndDeleteEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	r := h.fx.mustCreate(h.fx.member, monday(10, 0), monday(11, 0), 1)
	path := "/api/v1/facility-reservations/" + r.ID.String()

	w, _ := h.do(t, &h.fx.member, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := h.do(t, &h.fx.outsider, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Errors["code"])

	w, env = h.do(t, &h.fx.member, http.MethodGet, "/api/v1/facility-reservations/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Errors["code"])

	w, _ = h.do(t, &h.fx.manager, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(t, &h.fx.manager, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Errors["code"])
}

func TestCheckConflictsEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	h.fx.mustCreate(h.fx.member, monday(10, 0), monday(11, 0), 2)

	w, env := h.do(t, &h.fx.member, http.MethodPost, "/api/v1/facility-reservations/check-conflicts", reservations.CheckConflictsRequest{
		FacilityID: h.fx.facility.ID.String(),
		StartTime:  monday(10, 30),
		EndTime:    monday(11, 30),
		HorseCount: 1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out reservations.ConflictCheckResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, out.HasConflicts)
	assert.True(t, out.WouldExceedCapacity)
	assert.Len(t, out.Conflicts, 1)
}
