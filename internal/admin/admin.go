// Administrative HTTP API for mutating the cache while serving
package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/aixkai/naiveproxy/internal/backend"
)

// Router exposes the backend's mutation surface over HTTP, mainly for
// test harnesses: listing keys, overriding entries and assigning
// simulated delays while requests are being served.
func Router(b *backend.Backend) http.Handler {
	r := chi.NewRouter()
	r.Get("/keys", handleKeys(b))
	r.Post("/delay", handleDelay(b))
	r.Post("/responses", handleAddResponse(b))
	return r
}

func handleKeys(b *backend.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := b.Keys()
		sort.Strings(keys)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(keys); err != nil {
			logrus.Errorf("Failed to encode key list: %v", err)
		}
	}
}

func handleDelay(b *backend.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host := r.URL.Query().Get("host")
		path := r.URL.Query().Get("path")
		delay, err := time.ParseDuration(r.URL.Query().Get("delay"))
		if host == "" || path == "" || err != nil {
			http.Error(w, "host, path and delay are required", http.StatusBadRequest)
			return
		}
		if !b.SetResponseDelay(host, path, delay) {
			http.Error(w, "no such entry", http.StatusNotFound)
			return
		}
		logrus.Infof("Set delay %s for %s%s", delay, host, path)
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAddResponse(b *backend.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host := r.URL.Query().Get("host")
		path := r.URL.Query().Get("path")
		if host == "" || path == "" {
			http.Error(w, "host and path are required", http.StatusBadRequest)
			return
		}
		status := http.StatusOK
		if s := r.URL.Query().Get("status"); s != "" {
			code, err := strconv.Atoi(s)
			if err != nil {
				http.Error(w, "invalid status", http.StatusBadRequest)
				return
			}
			status = code
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.AddSimpleResponse(host, path, status, body)
		logrus.Infof("Added response for %s%s (status %d, %d bytes)", host, path, status, len(body))
		w.WriteHeader(http.StatusCreated)
	}
}
