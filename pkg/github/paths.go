package github

// GitHub REST endpoints, relative to the API base URL.
const (
	DefaultBaseURL = "https://api.github.com"

	// https://docs.github.com/en/rest/search/search#search-repositories
	searchRepositoriesPath = "/search/repositories"
	// https://docs.github.com/en/rest/commits/commits#list-commits
	commitsPathFmt = "/repos/%s/%s/commits"
)

// metric labels
const (
	endpointSearch  = "search_repositories"
	endpointCommits = "list_commits"
)
