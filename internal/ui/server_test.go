package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsphere-labs/dsptool/internal/api"
	"github.com/dsphere-labs/dsptool/internal/cache"
	"github.com/dsphere-labs/dsptool/internal/lineage"
	"github.com/dsphere-labs/dsptool/internal/testutil"
)

type fakeService struct {
	spaces    []api.Space
	spacesErr error
	objects   map[string][]api.Object
	ids       map[string]string
	trees     map[string]*lineage.Tree
	lastOpts  api.LineageOptions
}

func (f *fakeService) Spaces(context.Context) ([]api.Space, error) {
	return f.spaces, f.spacesErr
}

func (f *fakeService) SpaceObjects(_ context.Context, spaceID string) ([]api.Object, error) {
	objs, ok := f.objects[spaceID]
	if !ok {
		return nil, &api.Error{Message: "space not found", StatusCode: http.StatusNotFound}
	}
	return objs, nil
}

func (f *fakeService) FindObjectID(_ context.Context, technicalName, spaceID string) (string, bool, error) {
	id, ok := f.ids[spaceID+"/"+technicalName]
	return id, ok, nil
}

func (f *fakeService) Lineage(_ context.Context, objectID string, opts api.LineageOptions) (*lineage.Tree, error) {
	f.lastOpts = opts
	tree, ok := f.trees[objectID]
	if !ok {
		return nil, &api.Error{Message: "object not found", StatusCode: http.StatusNotFound}
	}
	return tree, nil
}

func testTree() *lineage.Tree {
	return lineage.NewTree(lineage.FromPayload(lineage.NodePayload{
		ID:            "obj-1",
		QualifiedName: "V_SALES",
		Kind:          "sap.dwc.view",
		Dependencies: []lineage.NodePayload{
			{
				ID:             "obj-2",
				QualifiedName:  "TF_LOAD_SALES",
				Kind:           "sap.dwc.transformationflow",
				DependencyType: "sap.dwc.transformationflow.source",
			},
			{
				ID:             "obj-3",
				QualifiedName:  "DIM_CUSTOMER",
				Kind:           "sap.dwc.view",
				DependencyType: "csn.entity.association",
			},
		},
	}))
}

func catalogTime() time.Time {
	return time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
}

func dimOnlyTree() *lineage.Tree {
	return lineage.NewTree(lineage.FromPayload(lineage.NodePayload{
		ID:            "obj-9",
		QualifiedName: "DIM_ONLY",
		Kind:          "sap.dwc.view",
	}))
}

func newTestServer(t *testing.T, catalog *cache.Catalog) *Server {
	t.Helper()
	service := &fakeService{
		spaces: []api.Space{{ID: "SALES", BusinessName: "Sales"}},
		objects: map[string][]api.Object{
			"SALES": {{TechnicalName: "V_SALES", Kind: "sap.dwc.view", SpaceID: "SALES", ID: "obj-1"}},
		},
		ids: map[string]string{"SALES/V_SALES": "obj-1"},
		trees: map[string]*lineage.Tree{
			"obj-1": testTree(),
			"obj-9": dimOnlyTree(),
		},
	}
	return NewServer(Config{
		Service:       service,
		Catalog:       catalog,
		Port:          0,
		SessionSecret: "test-secret",
		Logger:        testutil.NewTestLogger(t),
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestListSpaces(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/api/spaces", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["cached"])

	spaces := body["spaces"].([]any)
	require.Len(t, spaces, 1)
	assert.Equal(t, "SALES", spaces[0].(map[string]any)["id"])
}

func TestListSpacesFromCatalog(t *testing.T) {
	catalog := cache.New(testutil.NewTestLogger(t))
	catalog.Restore(cache.Data{
		Spaces:        []api.Space{{ID: "SALES"}},
		BusinessNames: map[string]string{"SALES": "Sales Analytics"},
	}, catalogTime())
	srv := newTestServer(t, catalog)

	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/api/spaces", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["cached"])

	spaces := body["spaces"].([]any)
	require.Len(t, spaces, 1)
	assert.Equal(t, "Sales Analytics", spaces[0].(map[string]any)["businessName"])
}

func TestListSpacesError(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.service.(*fakeService).spacesErr = errors.New("tenant unreachable")

	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/api/spaces", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["message"], "tenant unreachable")
}

func TestListObjects(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/api/spaces/SALES/objects", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	objects := body["objects"].([]any)
	require.Len(t, objects, 1)
	assert.Equal(t, "V_SALES", objects[0].(map[string]any)["technicalName"])
}

func TestListObjectsUnknownSpace(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, _ := doJSON(t, srv.Router(), http.MethodGet, "/api/spaces/NOPE/objects", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionSpaceRoundTrip(t *testing.T) {
	srv := newTestServer(t, nil)
	router := srv.Router()

	rec, body := doJSON(t, router, http.MethodPut, "/api/session/space", []byte(`{"spaceId":"SALES"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SALES", body["spaceId"])

	cookie := rec.Header().Get("Set-Cookie")
	require.NotEmpty(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/api/session/space", nil)
	req.Header.Set("Cookie", cookie)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &got))
	assert.Equal(t, "SALES", got["spaceId"])
}

func TestSelectSpaceRejectsEmpty(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, _ := doJSON(t, srv.Router(), http.MethodPut, "/api/session/space", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLineageTree(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/api/lineage/obj-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	root := body["root"].(map[string]any)
	assert.Equal(t, "V_SALES", root["qualifiedName"])
	stats := body["statistics"].(map[string]any)
	assert.Equal(t, float64(3), stats["totalObjects"])
}

func TestLineageImpactParam(t *testing.T) {
	service := &fakeService{trees: map[string]*lineage.Tree{"obj-1": testTree()}}
	srv := NewServer(Config{
		Service:       service,
		SessionSecret: "test-secret",
		Logger:        testutil.NewTestLogger(t),
	})

	rec, _ := doJSON(t, srv.Router(), http.MethodGet, "/api/lineage/obj-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, service.lastOpts.Impact)

	rec, _ = doJSON(t, srv.Router(), http.MethodGet, "/api/lineage/obj-1?impact=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, service.lastOpts.Impact)
	assert.True(t, service.lastOpts.Lineage)
}

func TestLineageTreeByName(t *testing.T) {
	srv := newTestServer(t, nil)

	// With a space, the path segment is a technical name.
	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/api/lineage/V_SALES?space=SALES", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "V_SALES", body["root"].(map[string]any)["qualifiedName"])
}

func TestLineageTreeNotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, _ := doJSON(t, srv.Router(), http.MethodGet, "/api/lineage/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionalTree(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/api/lineage/obj-1/transactional", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["hasTransactional"])

	tree := body["tree"].(map[string]any)
	root := tree["root"].(map[string]any)
	deps := root["dependencies"].([]any)
	require.Len(t, deps, 1)
	assert.Equal(t, "TF_LOAD_SALES", deps[0].(map[string]any)["qualifiedName"])
}

func TestTransactionalTreeEmptyState(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/api/lineage/obj-9/transactional", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["hasTransactional"])
	assert.NotEmpty(t, body["message"])
}

func TestLineageTable(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/api/lineage/obj-1/table", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rows := body["rows"].([]any)
	require.Len(t, rows, 3)
	first := rows[0].(map[string]any)
	assert.Equal(t, float64(0), first["level"])
	assert.Equal(t, "V_SALES", first["name"])
}

func TestLineageFlow(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := doJSON(t, srv.Router(), http.MethodGet, "/api/lineage/obj-1/flow", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	levels := body["levels"].([]any)
	require.Len(t, levels, 2)
	assert.Len(t, levels[1].([]any), 2)
}

func TestIndexPage(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Datasphere Toolkit")
	assert.Contains(t, rec.Body.String(), "SALES")
}
