package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/canopy-network/trackx/app/query/types"
	repomodels "github.com/canopy-network/trackx/pkg/db/models/repos"
	"github.com/canopy-network/trackx/pkg/utils"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleRepositories returns the latest snapshot of each repository, most starred first.
func (c *Controller) HandleRepositories(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := cached(r.Context(), c, types.RepositoriesCacheKey(limit), types.CacheKeyReposPrefix, "list_repositories",
		func(ctx context.Context) ([]repomodels.Repository, error) {
			return c.App.ReposDB.ListRepositories(ctx, limit)
		})
	if err != nil {
		c.App.Logger.Error("List repositories failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if rows == nil {
		rows = []repomodels.Repository{}
	}
	writeJSON(w, http.StatusOK, dataResponse[repomodels.Repository]{Data: rows})
}

func (c *Controller) HandleRepository(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	repo, err := c.App.ReposDB.GetRepository(r.Context(), vars["owner"], vars["name"])
	if err != nil {
		c.App.Logger.Error("Get repository failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if repo == nil {
		writeError(w, http.StatusNotFound, "repository not found")
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

// HandlePositions returns the leaderboard of a day.
func (c *Controller) HandlePositions(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := cached(r.Context(), c, types.PositionsCacheKey(day), types.CacheKeyReposPrefix, "list_positions",
		func(ctx context.Context) ([]repomodels.Position, error) {
			return c.App.ReposDB.ListPositions(ctx, day)
		})
	if err != nil {
		c.App.Logger.Error("List positions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if rows == nil {
		rows = []repomodels.Position{}
	}
	writeJSON(w, http.StatusOK, dataResponse[repomodels.Position]{Data: rows})
}

// HandleAuthors returns the commits per author of a repository during a day.
func (c *Controller) HandleAuthors(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	repo := utils.RepoFullName(vars["owner"], vars["name"])

	day, err := parseDay(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := cached(r.Context(), c, types.AuthorsCacheKey(repo, day), types.CacheKeyReposPrefix, "list_authors_commits",
		func(ctx context.Context) ([]repomodels.AuthorCommits, error) {
			return c.App.ReposDB.ListAuthorsCommits(ctx, day, repo)
		})
	if err != nil {
		c.App.Logger.Error("List authors commits failed", zap.String("repo", repo), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if rows == nil {
		rows = []repomodels.AuthorCommits{}
	}
	writeJSON(w, http.StatusOK, dataResponse[repomodels.AuthorCommits]{Data: rows})
}
