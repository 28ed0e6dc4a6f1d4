package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/absolutastore/storefront-backend/api/middleware"
	"github.com/absolutastore/storefront-backend/internal/cart"
	"github.com/absolutastore/storefront-backend/internal/catalog"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/storage"
)

const testCatalogJSON = `[
	{"id":1,"name":"Creme Hidratante","category":"skincare","price":89,"description":"Hidratação profunda","images":["c.png"],"colors":["Rosa","Nude"],"featured":true},
	{"id":2,"name":"Sérum Vitamina C","category":"skincare","price":120,"images":["s.png"]},
	{"id":3,"name":"Shampoo","category":"cabelos","price":49.9,"images":["sh.png"],"featured":true},
	{"id":4,"name":"Batom","category":"maquiagem","price":35.5,"images":["b.png"]}
]`

type staticSource struct {
	payload string
	err     error
}

func (s staticSource) Fetch(context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.payload), nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func newTestCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.NewStore(catalog.StoreParams{Source: staticSource{payload: testCatalogJSON}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return store
}

func newTestCarts(t *testing.T) *cart.Carts {
	t.Helper()
	carts, err := cart.NewCarts(storage.NewMemory(), testLogger())
	if err != nil {
		t.Fatalf("new carts: %v", err)
	}
	return carts
}

func withRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func withSession(req *http.Request, session string) *http.Request {
	return req.WithContext(middleware.WithCartSession(req.Context(), session))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return envelope.Error.Code
}
