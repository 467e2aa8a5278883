package objectstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
)

func newTestClient(server *httptest.Server) *Client {
	installationIds := NewInstallationIdProvider(NewMemoryStorage())
	runner := NewCommandRunner(NewHttpTransport(), installationIds, fastRunnerSettings())
	return NewClientWithRunner(context.Background(), serverSession(server), installationIds, runner)
}

func TestClientCreateObject(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		bodyBytes, _ := io.ReadAll(r.Body)
		json.Unmarshal(bodyBytes, &gotBody)
		w.WriteHeader(201)
		w.Write([]byte(`{"objectId":"p1","createdAt":"2026-08-31T12:00:00Z"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	defer client.Close()

	result, err := client.CreateObject("Player", map[string]any{"name": "ada"})
	assert.Equal(t, nil, err)
	assert.Equal(t, "p1", result.ObjectId)
	assert.Equal(t, "2026-08-31T12:00:00Z", result.CreatedAt)
	assert.Equal(t, "/1/classes/Player", gotPath)
	assert.Equal(t, map[string]any{"name": "ada"}, gotBody)
}

func TestClientUpdateObjectSendsPendingPayload(t *testing.T) {
	var gotMethod string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		bodyBytes, _ := io.ReadAll(r.Body)
		json.Unmarshal(bodyBytes, &gotBody)
		w.Write([]byte(`{"updatedAt":"2026-08-31T12:00:00Z"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	defer client.Close()

	pending := NewPendingOperationSet()
	assert.Equal(t, nil, pending.Apply("score", NewIncrementOperation(2)))
	assert.Equal(t, nil, pending.Apply("score", NewIncrementOperation(3)))
	assert.Equal(t, nil, pending.Apply("tags", NewAddUniqueOperation("a")))

	result, err := client.UpdateObject("Player", "p1", pending)
	assert.Equal(t, nil, err)
	assert.Equal(t, "2026-08-31T12:00:00Z", result.UpdatedAt)
	assert.Equal(t, "PUT", gotMethod)
	assert.Equal(
		t,
		map[string]any{
			"score": map[string]any{"__op": "Increment", "amount": float64(5)},
			"tags":  map[string]any{"__op": "AddUnique", "objects": []any{"a"}},
		},
		gotBody,
	)

	// the pending set is cleared after a successful save
	assert.Equal(t, 0, pending.Len())
}

func TestClientQueryObjects(t *testing.T) {
	var gotWhere string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWhere = r.URL.Query().Get("where")
		w.Write([]byte(`[{"objectId":"p1"},{"objectId":"p2"}]`))
	}))
	defer server.Close()

	client := newTestClient(server)
	defer client.Close()

	objects, err := client.QueryObjects("Player", map[string]any{"name": "ada"})
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(objects))
	assert.Equal(t, "p1", objects[0]["objectId"])
	assert.Equal(t, `{"name":"ada"}`, gotWhere)
}

func TestClientDeleteObjectSurfacesTypedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		w.Write([]byte(`{"code":101,"error":"Object not found."}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	defer client.Close()

	err := client.DeleteObject("Player", "missing")
	apiError, ok := err.(*ApiError)
	assert.Equal(t, true, ok)
	assert.Equal(t, ErrorObjectNotFound, apiError.Code)
}

func TestClientCreateObjectAsync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(201)
		w.Write([]byte(`{"objectId":"p1"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	defer client.Close()

	callback, c := NewBlockingResultCallback[*CreateObjectResult]()
	client.CreateObjectAsync("Player", map[string]any{"name": "ada"}, callback)

	callbackResult := <-c
	assert.Equal(t, nil, callbackResult.Error)
	assert.Equal(t, "p1", callbackResult.Result.ObjectId)
}
