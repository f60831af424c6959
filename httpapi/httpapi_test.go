package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleListHostsEmpty(t *testing.T) {
	s := New(0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/hosts", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var names []string
	if err := json.NewDecoder(w.Body).Decode(&names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("names = %v, want empty", names)
	}
}

func TestHandleStatusUnknownHost(t *testing.T) {
	s := New(0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/hosts/ghost/status", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for an unregistered host", w.Code)
	}
}

func TestHandleExecuteUnknownHost(t *testing.T) {
	s := New(0, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/hosts/ghost/execute", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for an unregistered host", w.Code)
	}
}

func TestHandleChassisSELSDRUnknownHost(t *testing.T) {
	s := New(0, nil)

	for _, path := range []string{"/api/hosts/ghost/chassis", "/api/hosts/ghost/sel", "/api/hosts/ghost/sdr"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404 for an unregistered host", path, w.Code)
		}
	}
}

func TestHandleSensorReadingUnknownHostAndBadNumber(t *testing.T) {
	s := New(0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/hosts/ghost/sensors/1", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for an unregistered host", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/hosts/ghost/sensors/not-a-number", nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 (unregistered host checked before the number)", w.Code)
	}
}

func TestQueryIntDefaultsAndParses(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/hosts/x/sel?offset=5", nil)
	if got := queryInt(req, "offset", 0); got != 5 {
		t.Errorf("queryInt(offset) = %d, want 5", got)
	}
	if got := queryInt(req, "num", 20); got != 20 {
		t.Errorf("queryInt(num) missing param = %d, want default 20", got)
	}

	bad := httptest.NewRequest(http.MethodGet, "/api/hosts/x/sel?offset=notanumber", nil)
	if got := queryInt(bad, "offset", 7); got != 7 {
		t.Errorf("queryInt(offset) unparsable = %d, want default 7", got)
	}
}
