package controller

import (
	"net/http"

	"go.uber.org/zap"
)

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := c.App.CampaignDB.Ping(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "campaign database connection error"})
		return
	}

	if err := c.App.ReposDB.Ping(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "repos database connection error"})
		return
	}

	// the cache is optional, a failing Redis only degrades latency
	if c.App.RedisClient != nil {
		if err := c.App.RedisClient.Health(ctx); err != nil {
			c.App.Logger.Warn("Redis health check failed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleDBVersion returns the Postgres server version.
func (c *Controller) HandleDBVersion(w http.ResponseWriter, r *http.Request) {
	if c.App.Postgres == nil {
		writeError(w, http.StatusServiceUnavailable, "postgres is not configured")
		return
	}

	version, err := c.App.Postgres.Version(r.Context())
	if err != nil {
		c.App.Logger.Error("Failed to read postgres version", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"version": version})
}
