package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const keyContextKey contextKey = "api_key"

// APIKeyHeader is checked when no Authorization header is present.
const APIKeyHeader = "X-API-Key"

// KeyIDFromContext returns a short fingerprint of the API key that
// authenticated the request, or "" when auth is disabled.
func KeyIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(keyContextKey).(string)
	return id
}

// APIKeyAuth accepts keys whose SHA-256 matches one of keyHashes, sent as a
// bearer token or in the X-API-Key header. An empty list disables
// authentication.
func APIKeyAuth(keyHashes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keyHashes) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, msg := presentedKey(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, msg)
				return
			}

			hash := hashAPIKey(key)
			if !knownHash(keyHashes, hash) {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), keyContextKey, hash[:12])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// presentedKey returns the key the client sent, or "" with the reason.
func presentedKey(r *http.Request) (string, string) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", "invalid authorization header format"
		}
		return strings.TrimSpace(parts[1]), ""
	}
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key, ""
	}
	return "", "missing authorization header"
}

func knownHash(hashes []string, hash string) bool {
	found := false
	for _, h := range hashes {
		if subtle.ConstantTimeCompare([]byte(h), []byte(hash)) == 1 {
			found = true
		}
	}
	return found
}

func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// HashAPIKey is exported so configured plaintext keys can be hashed once at
// startup.
func HashAPIKey(key string) string {
	return hashAPIKey(key)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
