package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/canopy-network/trackx/pkg/collector"
	"github.com/canopy-network/trackx/pkg/db"
	"github.com/canopy-network/trackx/pkg/db/campaign"
	"github.com/canopy-network/trackx/pkg/db/clickhouse"
	campaignmodels "github.com/canopy-network/trackx/pkg/db/models/campaign"
	repomodels "github.com/canopy-network/trackx/pkg/db/models/repos"
	"github.com/canopy-network/trackx/pkg/db/repos"
	"github.com/canopy-network/trackx/pkg/github"
	"github.com/canopy-network/trackx/pkg/logging"
	"github.com/canopy-network/trackx/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type stores struct {
	campaign campaign.Store
	repos    repos.Store
	logger   *zap.Logger
}

func (s *stores) Close() {
	_ = s.campaign.Close()
	_ = s.repos.Close()
	_ = s.logger.Sync()
}

// openStores connects to both stores. New creates missing databases and tables.
func openStores(ctx context.Context) (*stores, error) {
	logger, err := logging.Build(logLevel, "console")
	if err != nil {
		return nil, err
	}
	c, r, err := db.NewStores(ctx, logger, clickhouse.GetPoolConfigForComponent("cli"))
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}
	return &stores{campaign: c, repos: r, logger: logger}, nil
}

// tableInspector is implemented by the ClickHouse stores.
type tableInspector interface {
	TableExists(ctx context.Context, database, table string) (bool, error)
	CountRows(ctx context.Context, database, table string) (uint64, error)
}

var (
	campaignTables = []string{campaignmodels.ViewsTableName}
	reposTables    = []string{repomodels.RepositoriesTableName, repomodels.AuthorsCommitsTableName, repomodels.PositionsTableName}
)

func runSchemaInit(cmd *cobra.Command) error {
	s, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if err := describeSchema(cmd.Context(), out, s.campaign.DatabaseName(), s.campaign, campaignTables); err != nil {
		return err
	}
	return describeSchema(cmd.Context(), out, s.repos.DatabaseName(), s.repos, reposTables)
}

// describeSchema prints one line per table and fails when a table is missing.
func describeSchema(ctx context.Context, out io.Writer, database string, store interface{}, tables []string) error {
	inspector, ok := store.(tableInspector)
	if !ok {
		fmt.Fprintf(out, "%s: in-memory store, nothing to create\n", database)
		return nil
	}

	var missing []string
	for _, table := range tables {
		exists, err := inspector.TableExists(ctx, database, table)
		if err != nil {
			return err
		}
		state := "ok"
		if !exists {
			state = "missing"
			missing = append(missing, table)
		}
		fmt.Fprintf(out, "%s.%s %s\n", database, table, state)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: tables not created: %v", database, missing)
	}
	return nil
}

func runViewsIngest(cmd *cobra.Command, campaignID uint64, file string) error {
	in := cmd.InOrStdin()
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	s, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := ingestViews(cmd.Context(), s.campaign, campaignID, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "inserted %d events into campaign %d\n", n, campaignID)
	return nil
}

func ingestViews(ctx context.Context, store campaign.Store, campaignID uint64, in io.Reader) (int, error) {
	var events []campaignmodels.ViewEvent
	if err := json.NewDecoder(in).Decode(&events); err != nil {
		return 0, fmt.Errorf("decode events: %w", err)
	}
	for i := range events {
		if events[i].Phrase == "" || events[i].Timestamp.IsZero() {
			return 0, fmt.Errorf("event %d: phrase and dt are required", i)
		}
		events[i].CampaignID = campaignID
	}
	if err := store.InsertViews(ctx, events); err != nil {
		return 0, err
	}
	return len(events), nil
}

func runViewsDeltas(cmd *cobra.Command, campaignID uint64, date string) error {
	s, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	return printDeltas(cmd.Context(), s.campaign, cmd.OutOrStdout(), campaignID, date, time.Now())
}

func printDeltas(ctx context.Context, store campaign.Store, out io.Writer, campaignID uint64, date string, now time.Time) error {
	day := utils.DayStart(now)
	if date != "" {
		var err error
		if day, err = campaign.ParseDay(date); err != nil {
			return err
		}
	}

	rows, err := store.HourlyDeltas(ctx, campaignID, day)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []campaignmodels.PhraseHourlyViews{}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{"data": rows})
}

func runCollect(cmd *cobra.Command, limit int) error {
	s, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	ghOpts := github.OptsFromEnv()
	ghOpts.Logger = s.logger
	scraper := github.NewScraper(github.NewClient(ghOpts), s.logger)
	defer scraper.Close()

	cfg := collector.ConfigFromEnv()
	if limit > 0 {
		cfg.Limit = github.ClampLimit(limit)
	}

	res, err := collector.New(scraper, s.repos, s.logger, cfg).Run(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runCompact(cmd *cobra.Command) error {
	s, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	return compact(cmd.Context(), s.repos, cmd.OutOrStdout())
}

// compact forces deduplication and prints the physical row count of each table before and after.
func compact(ctx context.Context, store repos.Store, out io.Writer) error {
	before, err := physicalRows(ctx, store)
	if err != nil {
		return err
	}
	if err := store.Compact(ctx); err != nil {
		return err
	}
	after, err := physicalRows(ctx, store)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "compacted %s\n", store.DatabaseName())
	for _, table := range reposTables {
		fmt.Fprintf(out, "  %s: %d -> %d rows\n", table, before[table], after[table])
	}
	return nil
}

func physicalRows(ctx context.Context, store repos.Store) (map[string]uint64, error) {
	rows := make(map[string]uint64, len(reposTables))
	switch s := store.(type) {
	case *repos.MemoryStore:
		for table, n := range s.PhysicalRows() {
			rows[table] = uint64(n)
		}
	case tableInspector:
		for _, table := range reposTables {
			n, err := s.CountRows(ctx, store.DatabaseName(), table)
			if err != nil {
				return nil, err
			}
			rows[table] = n
		}
	}
	return rows, nil
}
