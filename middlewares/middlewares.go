package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/hirewatch/scraper-http-service/common/utils"
)

const accessTimeSkew = 5 * time.Minute

// AccessTime rejects requests whose X-ACCESS-TIME header is missing or too
// far from server time.
func AccessTime() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-ACCESS-TIME")
			if raw == "" {
				utils.WriteError(w, http.StatusUnauthorized, "Missing access time")
				return
			}

			unix, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, "Invalid access time")
				return
			}

			drift := time.Since(time.Unix(unix, 0))
			if drift > accessTimeSkew || drift < -accessTimeSkew {
				utils.WriteError(w, http.StatusUnauthorized, "Access time out of range")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ApiKey gates requests on the X-API-KEY header. An empty configured key
// disables the check for local development.
func ApiKey(apiKey, salt string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-KEY")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				utils.WriteError(w, http.StatusUnauthorized, "Invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestSignature verifies X-REQUEST-SIGNATURE, an HMAC-SHA256 of
// "<method>:<path>:<access-time>" keyed with the server salt. An empty salt
// disables the check.
func RequestSignature(salt string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if salt == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-REQUEST-SIGNATURE")
			if provided == "" {
				utils.WriteError(w, http.StatusUnauthorized, "Missing request signature")
				return
			}

			mac := hmac.New(sha256.New, []byte(salt))
			mac.Write([]byte(r.Method + ":" + r.URL.Path + ":" + r.Header.Get("X-ACCESS-TIME")))
			expected := hex.EncodeToString(mac.Sum(nil))

			if !hmac.Equal([]byte(provided), []byte(expected)) {
				utils.WriteError(w, http.StatusUnauthorized, "Invalid request signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
