package httpkit

import (
	"net/http"
	"strconv"
	"strings"
)

type CORSOptions struct {
	// AllowedOrigins may contain "*" to echo any origin back.
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAgeSeconds    int
}

// CORS answers preflight requests with 204 and decorates responses to
// allowed origins. Browsers only let scripts read the headers listed in
// ExposedHeaders, so downloads need Content-Disposition there.
func CORS(opt CORSOptions) func(http.Handler) http.Handler {
	if len(opt.AllowedMethods) == 0 {
		opt.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	}
	if len(opt.AllowedHeaders) == 0 {
		opt.AllowedHeaders = []string{"Content-Type", "Accept"}
	}
	if opt.MaxAgeSeconds == 0 {
		opt.MaxAgeSeconds = 600
	}

	anyOrigin := false
	origins := make(map[string]struct{}, len(opt.AllowedOrigins))
	for _, o := range opt.AllowedOrigins {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			anyOrigin = true
		default:
			origins[o] = struct{}{}
		}
	}

	// Fixed headers sent with every allowed response.
	fixed := http.Header{}
	fixed.Set("Access-Control-Allow-Methods", strings.Join(opt.AllowedMethods, ", "))
	fixed.Set("Access-Control-Allow-Headers", strings.Join(opt.AllowedHeaders, ", "))
	fixed.Set("Access-Control-Max-Age", strconv.Itoa(opt.MaxAgeSeconds))
	if len(opt.ExposedHeaders) > 0 {
		fixed.Set("Access-Control-Expose-Headers", strings.Join(opt.ExposedHeaders, ", "))
	}
	if opt.AllowCredentials {
		fixed.Set("Access-Control-Allow-Credentials", "true")
	}

	allowed := func(origin string) bool {
		if origin == "" {
			return false
		}
		if anyOrigin {
			return true
		}
		_, ok := origins[origin]
		return ok
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			if origin := r.Header.Get("Origin"); allowed(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				for k, v := range fixed {
					h[k] = v
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
