// Package proxy serves the API under the dashboard's own origin by forwarding
// /api requests to the backend.
package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/tubedesk/backend/internal/apperrors"
	"github.com/tubedesk/backend/internal/logging"
)

const apiPrefix = "/api/"

// New returns a handler forwarding /api/* verbatim to upstream. Every other
// path answers 404.
func New(upstream string) (http.Handler, error) {
	target, err := url.Parse(strings.TrimSpace(upstream))
	if err != nil {
		return nil, fmt.Errorf("parse proxy upstream: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("proxy upstream %q must be an absolute URL", upstream)
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			ctx := r.Context()
			logging.FromContext(ctx).Error("proxy upstream failed", "upstream", target.String(), "error", err)
			writeEnvelope(w, apperrors.External("Backend unavailable", err))
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, apiPrefix) {
			writeEnvelope(w, apperrors.NotFound("Not found"))
			return
		}
		rp.ServeHTTP(w, r)
	}), nil
}

func writeEnvelope(w http.ResponseWriter, e *apperrors.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = json.NewEncoder(w).Encode(e.ToResponse())
}
