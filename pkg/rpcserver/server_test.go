package rpcserver

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/mappydb/mappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type fakeStore struct {
	data map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{data: map[string][]byte{}} }

func (s *fakeStore) Insert(key string, value []byte) error {
	s.data[key] = value
	return nil
}

func (s *fakeStore) Query(key string) ([]byte, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *fakeStore) Delete(key string) bool {
	_, ok := s.data[key]
	delete(s.data, key)
	return ok
}

func (s *fakeStore) Len() uint64 { return uint64(len(s.data)) }

func (s *fakeStore) Stats() mappy.Stats {
	return mappy.Stats{Len: uint64(len(s.data))}
}

func newRequestCtx(method, uri string, body []byte) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func TestInsertAndQueryRoundTrip(t *testing.T) {
	store := newFakeStore()
	srv := NewServer(store, DefaultConfig(), nil)

	body, err := json.Marshal(insertRequest{Key: "k1", Value: base64.StdEncoding.EncodeToString([]byte("v1"))})
	require.NoError(t, err)
	ctx := newRequestCtx("POST", "/v1/insert", body)
	srv.handle(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = newRequestCtx("GET", "/v1/query?key=k1", nil)
	srv.handle(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp queryResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.True(t, resp.Exists)
	decoded, err := base64.StdEncoding.DecodeString(resp.Value)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(decoded))
}

func TestDeleteRemovesKey(t *testing.T) {
	store := newFakeStore()
	store.data["k1"] = []byte("v1")
	srv := NewServer(store, DefaultConfig(), nil)

	body, err := json.Marshal(deleteRequest{Key: "k1"})
	require.NoError(t, err)
	ctx := newRequestCtx("POST", "/v1/delete", body)
	srv.handle(ctx)

	var resp deleteResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.True(t, resp.Removed)
	_, ok := store.data["k1"]
	assert.False(t, ok)
}

func TestMissingKeyReturns400(t *testing.T) {
	store := newFakeStore()
	srv := NewServer(store, DefaultConfig(), nil)

	ctx := newRequestCtx("GET", "/v1/query", nil)
	srv.handle(ctx)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestHealthEndpoint(t *testing.T) {
	store := newFakeStore()
	srv := NewServer(store, DefaultConfig(), nil)

	ctx := newRequestCtx("GET", "/health", nil)
	srv.handle(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}

func TestAPIKeyEnforced(t *testing.T) {
	store := newFakeStore()
	cfg := DefaultConfig()
	cfg.Server.APIKey = "secret"
	srv := NewServer(store, cfg, nil)

	ctx := newRequestCtx("GET", "/health", nil)
	srv.handle(ctx)
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = newRequestCtx("GET", "/health", nil)
	ctx.Request.Header.Set("X-Api-Key", "secret")
	srv.handle(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}
