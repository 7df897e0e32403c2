package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carter2099/best-bets/internal/db"
	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/repository"
	gormrepository "github.com/carter2099/best-bets/internal/repository/gorm"
	"github.com/carter2099/best-bets/internal/repository/memory"
	"github.com/carter2099/best-bets/internal/service"
)

var (
	scanType  string
	scanLimit int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a one-shot scan over the listing feed and print the ranking",
	Long: `Run a one-shot scan and print the ranked tokens.

The scan is stored when db.dsn is set and kept in memory otherwise.

Examples:
  best-bets scan --type test --limit 50
  best-bets scan --type daily`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanType, "type", models.ScanTypeTest, "scan type: daily or test")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "tokens to analyse (defaults to scan.daily_limit or scan.test_limit)")
}

func runScan(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repository.ScanRepository = memory.New()
	if rt.cfg.DB.DSN != "" {
		conn, err := rt.openDB()
		if err != nil {
			return err
		}
		defer db.Close(conn)
		if err := db.AutoMigrate(conn); err != nil {
			return err
		}
		store = gormrepository.New(conn.Gorm)
	} else {
		rt.log.Info("db.dsn is empty, scan results are not persisted")
	}

	limit := scanLimit
	if limit <= 0 {
		limit = rt.cfg.Scan.TestLimit
		if scanType == models.ScanTypeDaily {
			limit = rt.cfg.Scan.DailyLimit
		}
	}

	prov := rt.buildProviders()
	svc := &service.ScanService{
		Repo:     store,
		Listing:  prov.listing,
		Analyzer: prov.analyzer,
		Logger:   rt.log,
		Metrics:  rt.metrics,
	}
	res, err := svc.RunScan(ctx, scanType, limit)
	if err != nil {
		return err
	}
	rt.log.Info("scan stored", zap.Uint64("scan_id", res.Scan.ID))
	return printScan(cmd.OutOrStdout(), res)
}

func printScan(out io.Writer, res *service.ScanResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSYMBOL\tADDRESS\tSCORE\tMCAP\tVOL24H\tLIQUIDITY\tHOLDERS")
	for _, t := range res.Tokens {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\t%s\t%s\t%d\n",
			t.Rank, t.Symbol, t.Address, t.Score,
			t.MarketCap.StringFixed(0), t.Volume24h.StringFixed(0), t.Liquidity.StringFixed(0), t.HolderCount)
	}
	return w.Flush()
}
