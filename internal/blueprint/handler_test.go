package blueprint

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannr/plannr/blueprint-go/internal/backend/sqlite"
	"github.com/plannr/plannr/blueprint-go/internal/document"
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "blueprint-handler-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(tempDir(t), "blueprints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	r := mux.NewRouter()
	NewHandler(NewService(store)).Routes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestBlueprintLifecycle(t *testing.T) {
	r := newRouter(t)

	rec := do(t, r, "POST", "/blueprints", `{"name":"  Ballroom ","width":80,"height":60}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[document.Blueprint](t, rec)
	assert.Equal(t, "Ballroom", created.Name)
	assert.Equal(t, document.UnitFeet, created.Unit)
	assert.True(t, strings.HasPrefix(created.ID, "bp_"))

	rec = do(t, r, "GET", "/blueprints", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]document.Blueprint](t, rec), 1)

	canvas := `[{"id":"s1","type":"rectangle","x":0,"y":0,"width":-4,"height":10,"selected":true,"visible":true}]`
	rec = do(t, r, "PUT", "/blueprints/"+created.ID+"/canvas", canvas)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, "GET", "/blueprints/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[document.Blueprint](t, rec)
	shapes, err := got.Shapes()
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.Zero(t, shapes[0].Width, "stored canvas is normalized")
	assert.False(t, shapes[0].Selected)
	assert.NotContains(t, string(got.CanvasData), "selected")

	rec = do(t, r, "DELETE", "/blueprints/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, r, "GET", "/blueprints/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, r, "DELETE", "/blueprints/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidation(t *testing.T) {
	r := newRouter(t)

	for _, body := range []string{
		`not json`,
		`{"name":"","width":10,"height":10}`,
		`{"name":"x","width":0,"height":10}`,
		`{"name":"x","width":10,"height":10,"unit":"meters"}`,
	} {
		rec := do(t, r, "POST", "/blueprints", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := do(t, r, "POST", "/blueprints", `{"name":"Hall","width":10,"height":10}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[document.Blueprint](t, rec).ID

	rec = do(t, r, "PUT", "/blueprints/"+id+"/canvas", `[{"id":"a","type":"hexagon"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, r, "PUT", "/blueprints/"+id+"/canvas", `[{"id":"a","type":"circle"},{"id":"a","type":"circle"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, r, "PUT", "/blueprints/bp_missing/canvas", `[]`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport(t *testing.T) {
	r := newRouter(t)

	rec := do(t, r, "POST", "/blueprints", `{"name":"Gala","sample":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[document.Blueprint](t, rec)
	assert.Equal(t, "Gala", created.Name)
	shapes, err := created.Shapes()
	require.NoError(t, err)
	assert.NotEmpty(t, shapes)

	rec = do(t, r, "GET", "/blueprints/"+created.ID+"/export.png?scale=0.5", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = do(t, r, "GET", "/blueprints/"+created.ID+"/export.pdf?grid=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = do(t, r, "GET", "/blueprints/"+created.ID+"/export.svg", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, r, "GET", "/blueprints/"+created.ID+"/export.png?scale=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, r, "GET", "/blueprints/bp_missing/export.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
