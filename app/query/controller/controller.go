package controller

import (
	"net/http"

	"github.com/canopy-network/trackx/app/query/types"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"golang.org/x/sync/singleflight"
)

type Controller struct {
	App *types.App
	// merges concurrent identical cache misses into one store query
	group singleflight.Group
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	if app.Generations == nil {
		app.Generations = types.NewGenerations()
	}
	return &Controller{
		App: app,
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(c.App.Metrics.Middleware)

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods("GET")
	r.Handle("/db-version", http.HandlerFunc(c.HandleDBVersion)).Methods("GET")
	r.Handle("/metrics", c.App.Metrics.Handler()).Methods("GET")

	r.HandleFunc("/campaigns/{id}/hourly-views", c.HandleHourlyViews).Methods("GET")
	r.HandleFunc("/campaigns/{id}/views", c.HandleIngestViews).Methods("POST")

	r.HandleFunc("/repositories", c.HandleRepositories).Methods("GET")
	r.HandleFunc("/repositories/positions", c.HandlePositions).Methods("GET")
	r.HandleFunc("/repositories/{owner}/{name}", c.HandleRepository).Methods("GET")
	r.HandleFunc("/repositories/{owner}/{name}/authors", c.HandleAuthors).Methods("GET")

	return r, nil
}

// WithCORS allows browser clients from any origin.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type dataResponse[T any] struct {
	Data []T `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
