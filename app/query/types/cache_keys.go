package types

import (
	"fmt"
	"time"
)

// Cache keys. Every repositories key starts with CacheKeyReposPrefix so a finished
// collector run can drop them together.
const (
	CacheKeyReposPrefix = "repos:"
	cacheKeyViewsPrefix = "hv:"
)

func HourlyViewsCacheKey(campaignID uint64, day time.Time) string {
	return fmt.Sprintf("%s%d:%s", cacheKeyViewsPrefix, campaignID, day.Format(time.DateOnly))
}

// HourlyViewsCachePrefix matches every cached day of a campaign.
func HourlyViewsCachePrefix(campaignID uint64) string {
	return fmt.Sprintf("%s%d:", cacheKeyViewsPrefix, campaignID)
}

func RepositoriesCacheKey(limit int) string {
	return fmt.Sprintf("%slist:%d", CacheKeyReposPrefix, limit)
}

func PositionsCacheKey(day time.Time) string {
	return CacheKeyReposPrefix + "positions:" + day.Format(time.DateOnly)
}

func AuthorsCacheKey(repo string, day time.Time) string {
	return CacheKeyReposPrefix + "authors:" + repo + ":" + day.Format(time.DateOnly)
}
