// Package authmw provides HTTP middleware for bearer token authentication of
// triage stations.
package authmw

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type stationKey struct{}

// WithStation returns a copy of ctx carrying the authenticated station name.
func WithStation(ctx context.Context, station string) context.Context {
	return context.WithValue(ctx, stationKey{}, station)
}

// StationFromContext returns the station stored by StationTokens.
func StationFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(stationKey{}).(string)
	return s, ok && s != ""
}

// StationTokens returns middleware that validates the Authorization header
// carries a Bearer token belonging to one of the stations (token -> station)
// and stores that station in the request context. Every configured token is
// compared in constant time so the response time does not reveal which
// tokens exist.
func StationTokens(tokens map[string]string) func(http.Handler) http.Handler {
	type cred struct {
		token   []byte
		station string
	}
	creds := make([]cred, 0, len(tokens))
	for tok, station := range tokens {
		if tok == "" || station == "" {
			continue
		}
		creds = append(creds, cred{token: []byte(tok), station: station})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing or malformed authorization header"}`, http.StatusUnauthorized)
				return
			}

			got := []byte(auth[len("Bearer "):])

			station := ""
			for _, c := range creds {
				if subtle.ConstantTimeCompare(got, c.token) == 1 {
					station = c.station
				}
			}
			if station == "" {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithStation(r.Context(), station)))
		})
	}
}
