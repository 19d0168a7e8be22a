package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"property-tour/internal/tour/cache"
	"property-tour/internal/tour/repository"
	"property-tour/internal/tour/service"
	"property-tour/internal/tour/session"
	"property-tour/internal/tour/storage"

	"github.com/gofiber/fiber/v3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const migrationsPath = "../../../migrations/001_init_tour.sql"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "tour.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.New(db)
	require.NoError(t, repo.Init(context.Background(), migrationsPath))

	files := storage.NewFileStorage(t.TempDir())
	props := service.NewPropertyService(repo, cache.NopKV{}, time.Minute, files, zap.NewNop())
	editor := service.NewEditorService(props, session.NewManager(), zap.NewNop())

	app := fiber.New()
	NewTourHandler(props, editor, files, zap.NewNop()).Routes(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return out
}

func createProperty(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/properties", fiber.Map{
		"title":         "Cihangir 1+1",
		"property_type": "single",
		"entry_room_id": "e",
		"rooms": []fiber.Map{
			{"id": "e", "name": "", "room_type": "entry", "floor": 0, "position_x": 0, "position_y": 0},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func openSession(t *testing.T, app *fiber.App, propertyID string) string {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/properties/"+propertyID+"/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["session_id"].(string)
}

func TestCreateProperty_Validation(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/properties", fiber.Map{"title": "x", "property_type": "castle"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_failed", body["error"])
	details := body["details"].([]any)
	require.Len(t, details, 1)
	assert.Equal(t, "property_type", details[0].(map[string]any)["field"])

	req := httptest.NewRequest(http.MethodPost, "/properties", strings.NewReader("{"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPropertyCRUD(t *testing.T) {
	app := newTestApp(t)
	id := createProperty(t, app)

	resp, body := doJSON(t, app, http.MethodGet, "/properties/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Cihangir 1+1", body["title"])

	resp, body = doJSON(t, app, http.MethodGet, "/properties", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, _ = doJSON(t, app, http.MethodPut, "/properties/"+id, fiber.Map{"title": "Yeni", "property_type": "duplex"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/properties/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/properties/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "property_not_found", body["error"])
}

func TestEditorSession(t *testing.T) {
	app := newTestApp(t)
	id := createProperty(t, app)
	sid := openSession(t, app, id)

	resp, body := doJSON(t, app, http.MethodGet, "/sessions/"+sid+"/cells?floor=0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["cells"], 4)

	resp, body = doJSON(t, app, http.MethodPost, "/sessions/"+sid+"/rooms", fiber.Map{"floor": 0, "x": 1, "y": 0, "room_type": "kitchen"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Mutfak", body["name"])
	assert.Equal(t, []any{"e"}, body["connections"])
	roomID := body["id"].(string)

	resp, body = doJSON(t, app, http.MethodPost, "/sessions/"+sid+"/rooms", fiber.Map{"floor": 0, "x": 1, "y": 0})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "cell_occupied", body["error"])
	assert.Equal(t, "bu hücre dolu", body["message"])

	resp, body = doJSON(t, app, http.MethodPost, "/sessions/"+sid+"/rooms", fiber.Map{"floor": 1, "x": 0, "y": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "floor_out_of_range", body["error"])

	resp, body = doJSON(t, app, http.MethodPatch, "/sessions/"+sid+"/rooms/"+roomID, fiber.Map{"name": "Açık Mutfak", "square_meters": 9.5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Açık Mutfak", body["name"])

	resp, _ = doJSON(t, app, http.MethodPatch, "/sessions/"+sid+"/rooms/"+roomID, fiber.Map{"room_type": "garage"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPut, "/sessions/"+sid+"/property-type", fiber.Map{"property_type": "duplex"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "duplex", body["property"].(map[string]any)["property_type"])

	resp, _ = doJSON(t, app, http.MethodPost, "/sessions/"+sid+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session_not_found", body["error"])

	resp, body = doJSON(t, app, http.MethodGet, "/properties/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "duplex", body["property_type"])
	assert.Len(t, body["rooms"], 2)
}

func TestEditorSession_DeleteAndDiscard(t *testing.T) {
	app := newTestApp(t)
	id := createProperty(t, app)
	sid := openSession(t, app, id)

	resp, _ := doJSON(t, app, http.MethodDelete, "/sessions/"+sid+"/rooms/e", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodDelete, "/sessions/"+sid+"/rooms/e", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "room_not_found", body["error"])

	resp, _ = doJSON(t, app, http.MethodDelete, "/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/properties/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["rooms"], 1)
}

func TestPublicViewer(t *testing.T) {
	app := newTestApp(t)
	id := createProperty(t, app)

	resp, body := doJSON(t, app, http.MethodGet, "/public/properties/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "e", body["start_room_id"])

	resp, body = doJSON(t, app, http.MethodGet, "/public/properties/"+id+"/rooms/e", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Giriş", body["display_name"])
	assert.Empty(t, body["hotspots"])

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/public/properties/"+id+"/floors/0/plan.svg", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))

	resp, body = doJSON(t, app, http.MethodGet, "/public/properties/"+id+"/floors/x/plan.svg", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["error"])
}

func TestUploadPanoramaAndServe(t *testing.T) {
	app := newTestApp(t)
	id := createProperty(t, app)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "pano.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-jpeg"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/properties/"+id+"/rooms/e/panorama", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	room := decodeBody(t, resp)
	ref := room["panorama_photo"].(string)
	assert.Equal(t, "/media/"+id+"/e/panorama.jpg", ref)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, ref, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "fake-jpeg", string(raw))

	resp, _ = doJSON(t, app, http.MethodGet, "/media/"+id+"/e/missing.jpg", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpload_RequiresFile(t *testing.T) {
	app := newTestApp(t)
	id := createProperty(t, app)

	resp, body := doJSON(t, app, http.MethodPost, "/properties/"+id+"/rooms/e/photos", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["error"])
}

func TestCreateProperty_RejectsUnknownRoomType(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/properties", fiber.Map{
		"title":         "Bozuk",
		"property_type": "single",
		"rooms": []fiber.Map{
			{"id": "a", "room_type": `garage"><script>alert(1)</script>`, "floor": 0, "position_x": 0, "position_y": 0},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "invalid_room_type", body["error"])

	resp, body = doJSON(t, app, http.MethodGet, "/properties", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["total"])
}

func TestCreateProperty_DuplicateRoomID(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/properties", fiber.Map{
		"title":         "Çift",
		"property_type": "single",
		"rooms": []fiber.Map{
			{"id": "a", "room_type": "entry", "floor": 0, "position_x": 0, "position_y": 0},
			{"id": "a", "room_type": "living_room", "floor": 0, "position_x": 1, "position_y": 0},
		},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "duplicate_room_id", body["error"])
}
