package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// UnknownAuthor is counted for commits whose author has no name.
const UnknownAuthor = "Unknown"

// UnknownLanguage replaces a null repository language.
const UnknownLanguage = "Unknown"

// Scraper collects the stars leaderboard and the last day of commits of each entry.
type Scraper struct {
	client *Client
	logger *zap.Logger
	pool   pond.Pool
	now    func() time.Time
}

// NewScraper creates a Scraper. Commit fetches are dispatched on a worker pool
// sized to the client's MCR; the client enforces the actual limits.
func NewScraper(client *Client, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := int(client.maxConcurrent())
	return &Scraper{
		client: client,
		logger: logger,
		pool:   pond.NewPool(workers, pond.WithQueueSize(100)),
		now:    time.Now,
	}
}

// Close stops the worker pool after running tasks finish.
func (s *Scraper) Close() {
	s.pool.StopAndWait()
}

// GetRepositories returns the top limit repositories by stars, positions starting at 1.
// limit is clamped to [1, 100]. A repository whose commits cannot be read gets no authors;
// only a failed search fails the call.
func (s *Scraper) GetRepositories(ctx context.Context, limit int) ([]Repository, error) {
	top, err := s.topRepositories(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Repository, len(top))
	since := s.now().UTC().Add(-24 * time.Hour)

	group := s.pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for i, r := range top {
		language := UnknownLanguage
		if r.Language != nil && *r.Language != "" {
			language = *r.Language
		}
		out[i] = Repository{
			Name:     r.Name,
			Owner:    r.Owner.Login,
			Position: uint32(i + 1),
			Stars:    r.StargazersCount,
			Watchers: r.WatchersCount,
			Forks:    r.ForksCount,
			Language: language,
		}

		idx := i
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			owner, name := out[idx].Owner, out[idx].Name
			authors, err := s.commitsByAuthor(groupCtx, owner, name, since)
			if err != nil {
				s.logger.Warn("Failed to fetch repository commits",
					zap.String("repo", owner+"/"+name),
					zap.Error(err))
				return
			}
			out[idx].AuthorsCommitsNumToday = authors
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		s.logger.Warn("Commit fetch group encountered error", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Scraper) topRepositories(ctx context.Context, limit int) ([]apiRepository, error) {
	limit = ClampLimit(limit)

	query := url.Values{}
	query.Set("q", "stars:>1")
	query.Set("sort", "stars")
	query.Set("order", "desc")
	query.Set("per_page", strconv.Itoa(limit))

	var resp searchResponse
	if err := s.client.getJSON(ctx, endpointSearch, searchRepositoriesPath, query, &resp); err != nil {
		return nil, fmt.Errorf("search repositories: %w", err)
	}
	if len(resp.Items) > limit {
		resp.Items = resp.Items[:limit]
	}
	return resp.Items, nil
}

// commitsByAuthor counts the commits since the given time per author name, busiest first.
func (s *Scraper) commitsByAuthor(ctx context.Context, owner, name string, since time.Time) ([]AuthorCommitsNum, error) {
	query := url.Values{}
	query.Set("since", since.Format(time.RFC3339))
	query.Set("per_page", "100")

	var commits []apiCommit
	path := fmt.Sprintf(commitsPathFmt, url.PathEscape(owner), url.PathEscape(name))
	if err := s.client.getJSON(ctx, endpointCommits, path, query, &commits); err != nil {
		return nil, err
	}
	return countByAuthor(commits), nil
}

// countByAuthor groups commits by author name. Commits without author data are skipped,
// and an author without a name is counted as UnknownAuthor.
func countByAuthor(commits []apiCommit) []AuthorCommitsNum {
	counts := map[string]uint64{}
	for _, c := range commits {
		if c.Commit.Author == nil {
			continue
		}
		author := UnknownAuthor
		if n := c.Commit.Author.Name; n != nil && *n != "" {
			author = *n
		}
		counts[author]++
	}
	if len(counts) == 0 {
		return nil
	}

	out := make([]AuthorCommitsNum, 0, len(counts))
	for author, n := range counts {
		out = append(out, AuthorCommitsNum{Author: author, CommitsNum: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CommitsNum != out[j].CommitsNum {
			return out[i].CommitsNum > out[j].CommitsNum
		}
		return out[i].Author < out[j].Author
	})
	return out
}

// ClampLimit bounds a leaderboard size to what one search page can return.
func ClampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > 100:
		return 100
	default:
		return limit
	}
}
