package github

// Repository is one entry of the stars leaderboard with today's commits per author.
type Repository struct {
	Name                   string             `json:"name"`
	Owner                  string             `json:"owner"`
	Position               uint32             `json:"position"`
	Stars                  uint64             `json:"stars"`
	Watchers               uint64             `json:"watchers"`
	Forks                  uint64             `json:"forks"`
	Language               string             `json:"language"`
	AuthorsCommitsNumToday []AuthorCommitsNum `json:"authors_commits_num_today"`
}

type AuthorCommitsNum struct {
	Author     string `json:"author"`
	CommitsNum uint64 `json:"commits_num"`
}

// wire types, only the fields we read

type searchResponse struct {
	TotalCount int             `json:"total_count"`
	Items      []apiRepository `json:"items"`
}

type apiRepository struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	StargazersCount uint64  `json:"stargazers_count"`
	WatchersCount   uint64  `json:"watchers_count"`
	ForksCount      uint64  `json:"forks_count"`
	Language        *string `json:"language"`
}

type apiCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Author *struct {
			Name *string `json:"name"`
		} `json:"author"`
	} `json:"commit"`
}
