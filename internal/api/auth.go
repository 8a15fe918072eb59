package api

import (
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"agenda/internal/config"
)

const (
	apiKeyHeaderDefault = "x-api-key"
	permReadCatalog     = "read:catalog"
	clientKeyUnknown    = "unknown"
)

var (
	errMissingAPIKey     = errors.New("missing api key")
	errInvalidAPIKey     = errors.New("invalid api key")
	errPermissionDenied  = errors.New("permission denied")
	errRateLimitExceeded = errors.New("rate limit exceeded")
)

// HTTPAuth provides API-key auth and per-key rate limiting for the catalog
// endpoints.
type HTTPAuth struct {
	cfg     config.APIAuthConfig
	clients []config.APIClientKey
	limiter *rateLimiter
}

func NewHTTPAuth(cfg *config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		cfg:     cfg.Auth,
		clients: cfg.Auth.APIKeys,
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

// Require returns middleware that checks the key and the permission before
// applying the rate limit.
func (a *HTTPAuth) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.cfg.Enabled {
				if err := a.checkAuth(r, permission); err != nil {
					statusCode := http.StatusUnauthorized
					if errors.Is(err, errPermissionDenied) {
						statusCode = http.StatusForbidden
					}
					writeError(w, statusCode, err.Error())
					return
				}
			}

			if !a.limiter.allow(a.clientKey(r)) {
				writeError(w, http.StatusTooManyRequests, errRateLimitExceeded.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (a *HTTPAuth) headerName() string {
	name := strings.TrimSpace(strings.ToLower(a.cfg.HeaderAPIKey))
	if name == "" {
		return apiKeyHeaderDefault
	}
	return name
}

func (a *HTTPAuth) checkAuth(r *http.Request, permission string) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.headerName()))
	if apiKey == "" {
		return errMissingAPIKey
	}

	client, ok := a.lookup(apiKey)
	if !ok {
		return errInvalidAPIKey
	}
	return checkPermission(client, permission)
}

func (a *HTTPAuth) lookup(apiKey string) (config.APIClientKey, bool) {
	for _, c := range a.clients {
		if subtle.ConstantTimeCompare([]byte(c.Key), []byte(apiKey)) == 1 {
			return c, true
		}
	}
	return config.APIClientKey{}, false
}

// checkPermission treats an empty permission list as allow-all.
func checkPermission(client config.APIClientKey, required string) error {
	if required == "" || len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.headerName())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}
