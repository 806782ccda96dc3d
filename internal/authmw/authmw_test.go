package authmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

var stations = map[string]string{
	"tok-triage-1": "triage-1",
	"tok-resus":    "resus",
}

func TestStationTokens_ValidToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token   string
		station string
	}{
		{"tok-triage-1", "triage-1"},
		{"tok-resus", "resus"},
	}

	for _, tt := range tests {
		t.Run(tt.station, func(t *testing.T) {
			t.Parallel()

			var got string
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = StationFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			h := StationTokens(stations)(inner)

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if got != tt.station {
				t.Errorf("station = %q, want %q", got, tt.station)
			}
		})
	}
}

func TestStationTokens_MissingHeader(t *testing.T) {
	t.Parallel()

	h := StationTokens(stations)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestStationTokens_WrongPrefix(t *testing.T) {
	t.Parallel()

	h := StationTokens(stations)(okHandler)

	tests := []struct {
		name  string
		value string
	}{
		{"Basic auth", "Basic dXNlcjpwYXNz"},
		{"lowercase bearer", "bearer tok-resus"},
		{"no prefix", "tok-resus"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.value != "" {
				req.Header.Set("Authorization", tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestStationTokens_InvalidToken(t *testing.T) {
	t.Parallel()

	h := StationTokens(stations)(okHandler)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong token", "wrong-token"},
		{"partial match", "tok-res"},
		{"token with suffix", "tok-resus-extra"},
		{"station name instead of token", "resus"},
		{"empty token", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestStationTokens_IgnoresEmptyEntries(t *testing.T) {
	t.Parallel()

	h := StationTokens(map[string]string{"": "ghost", "tok": ""})(okHandler)

	for _, header := range []string{"Bearer ", "Bearer tok"} {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%q: status = %d, want %d", header, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestStationTokens_PassesRequestThrough(t *testing.T) {
	t.Parallel()

	var called bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	h := StationTokens(stations)(inner)

	req := httptest.NewRequest(http.MethodPost, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer tok-resus")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Error("inner handler was not called")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestStationFromContext(t *testing.T) {
	t.Parallel()

	if _, ok := StationFromContext(context.Background()); ok {
		t.Error("empty context reported a station")
	}
	if s, ok := StationFromContext(WithStation(context.Background(), "triage-3")); !ok || s != "triage-3" {
		t.Errorf("StationFromContext = %q, %v", s, ok)
	}
}
