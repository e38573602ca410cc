package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tree-mapping-system/services"
	"tree-mapping-system/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *store.MemoryStore) {
	t.Helper()
	t.Setenv("INTERNAL_API_KEY", "test-internal-key")

	st := store.NewMemoryStore()
	observationService := services.NewObservationService(
		st,
		services.NewDedupService(st),
		services.NewCooldownService(st),
		services.NewZoneService(st, nil),
		services.NewBountyService(st),
		nil,
	)
	treeService := services.NewTreeService(st)

	app := fiber.New()
	SetupObservationRoutes(app, observationService, treeService)
	return app, st
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func observationPayload(lat, lng float64) map[string]interface{} {
	return map[string]interface{}{
		"latitude":  lat,
		"longitude": lng,
		"photos": []map[string]string{
			{"photo_type": "full_tree", "storage_key": "observations/u/full_tree.jpg"},
		},
	}
}

func TestPostObservationRequiresGatewayIdentity(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/observations/", observationPayload(30.2672, -97.7431), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPostObservationCreates(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/observations/", observationPayload(30.2672, -97.7431),
		map[string]string{"X-User-ID": "user-1"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["is_new_tree"])
	tree, ok := body["tree"].(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, tree["id"])
}

func TestPostObservationValidation(t *testing.T) {
	app, _ := newTestApp(t)
	headers := map[string]string{"X-User-ID": "user-1"}

	resp := postJSON(t, app, "/observations/", observationPayload(120.0, -97.7431), headers)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, app, "/observations/", map[string]interface{}{
		"latitude": 30.2672, "longitude": -97.7431,
	}, headers)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, app, "/observations/", map[string]interface{}{
		"latitude": 30.2672, "longitude": -97.7431,
		"photos": []map[string]string{{"photo_type": "full_tree"}},
	}, headers)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostObservationCooldownConflict(t *testing.T) {
	app, _ := newTestApp(t)

	for i := 1; i <= 3; i++ {
		resp := postJSON(t, app, "/observations/", observationPayload(30.2672, -97.7431),
			map[string]string{"X-User-ID": fmt.Sprintf("user-%d", i)})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := postJSON(t, app, "/observations/", observationPayload(30.2672, -97.7431),
		map[string]string{"X-User-ID": "user-4"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["tree_id"])
	assert.NotEmpty(t, body["cooldown_until"])
}

func TestPostObservationKeepsSubmitterIdentity(t *testing.T) {
	app, st := newTestApp(t)

	first := postJSON(t, app, "/observations/", observationPayload(30.2672, -97.7431),
		map[string]string{"X-User-ID": "user-1"})
	require.Equal(t, http.StatusCreated, first.StatusCode)
	firstBody := decodeBody(t, first)
	firstObsID := firstBody["observation"].(map[string]interface{})["id"].(string)

	// a later request from a different user must not rewrite the stored
	// identity of the earlier observation
	second := postJSON(t, app, "/observations/", observationPayload(30.3672, -97.7431),
		map[string]string{"X-User-ID": "user-2"})
	require.Equal(t, http.StatusCreated, second.StatusCode)

	obs, _, err := st.GetObservation(context.Background(), firstObsID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", obs.UserID)
}

func TestGetObservation(t *testing.T) {
	app, _ := newTestApp(t)

	created := postJSON(t, app, "/observations/", observationPayload(30.2672, -97.7431),
		map[string]string{"X-User-ID": "user-1"})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	body := decodeBody(t, created)
	obs := body["observation"].(map[string]interface{})
	obsID := obs["id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/observations/"+obsID, nil)
	req.Header.Set("X-User-ID", "user-1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/observations/00000000-0000-0000-0000-000000000000", nil)
	req.Header.Set("X-User-ID", "user-1")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInternalAIResultAuth(t *testing.T) {
	app, _ := newTestApp(t)

	created := postJSON(t, app, "/observations/", observationPayload(30.2672, -97.7431),
		map[string]string{"X-User-ID": "user-1"})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	body := decodeBody(t, created)
	obs := body["observation"].(map[string]interface{})
	obsID := obs["id"].(string)

	payload := map[string]interface{}{
		"species": map[string]interface{}{"common": "Live Oak", "scientific": "Quercus virginiana", "confidence": 0.9},
	}

	// wrong key rejected
	resp := postJSON(t, app, "/internal/observations/"+obsID+"/ai-result", payload,
		map[string]string{"X-Internal-Api-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, app, "/internal/observations/"+obsID+"/ai-result", payload,
		map[string]string{"X-Internal-Api-Key": "test-internal-key"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, app, "/internal/observations/missing/ai-result", payload,
		map[string]string{"X-Internal-Api-Key": "test-internal-key"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
