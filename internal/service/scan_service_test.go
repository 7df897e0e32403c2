package service

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carter2099/best-bets/internal/analyzer"
	"github.com/carter2099/best-bets/internal/client/jupiter"
	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/repository"
	"github.com/carter2099/best-bets/internal/repository/memory"
)

const (
	mintA = "So11111111111111111111111111111111111111112"
	mintB = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	mintC = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

type stubListing struct {
	tokens []jupiter.Token
	err    error
}

func (s stubListing) NewTokens(context.Context) ([]jupiter.Token, error) { return s.tokens, s.err }

type stubAnalyzer struct {
	results map[string]analyzer.Result
	errs    map[string]error
	calls   []string
}

func (s *stubAnalyzer) Analyze(_ context.Context, address string) (analyzer.Result, error) {
	s.calls = append(s.calls, address)
	if err := s.errs[address]; err != nil {
		return analyzer.Result{}, err
	}
	res := s.results[address]
	res.Address = address
	if res.Outcome == "" {
		res.Outcome = analyzer.OutcomeNoPair
	}
	return res, nil
}

func TestRunScanRanksByScoreAndPersists(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	an := &stubAnalyzer{
		results: map[string]analyzer.Result{
			mintA: {Outcome: analyzer.OutcomeScored, Score: 40},
			mintB: {Outcome: analyzer.OutcomeScored, Score: 80},
		},
		errs: map[string]error{mintC: errors.New("quote rate limited")},
	}
	svc := &ScanService{
		Repo: store,
		Listing: stubListing{tokens: []jupiter.Token{
			{Mint: mintA, Symbol: "A"},
			{Mint: "not-a-mint"},
			{Mint: mintB, Symbol: "B"},
			{Mint: mintC, Symbol: "C"},
		}},
		Analyzer: an,
	}

	res, err := svc.RunScan(ctx, "TEST", 10)
	require.NoError(t, err)
	assert.Equal(t, models.ScanTypeTest, res.Scan.ScanType)
	assert.Equal(t, models.ScanStatusCompleted, res.Scan.Status)
	require.Len(t, res.Tokens, 2)
	assert.Equal(t, mintB, res.Tokens[0].Address)
	assert.Equal(t, 1, res.Tokens[0].Rank)
	assert.Equal(t, 2, res.Tokens[1].Rank)

	var stats ScanStats
	require.NoError(t, json.Unmarshal(res.Scan.Stats, &stats))
	assert.Equal(t, ScanStats{Listed: 4, Analyzed: 2, Scored: 2, Failed: 1}, stats)

	stored, err := svc.ScanTokens(ctx, res.Scan.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, mintB, stored[0].Address)

	tok, _ := store.GetToken(ctx, mintA)
	assert.Nil(t, tok, "scans never write the tokens table")
}

func TestRunScanHonoursLimit(t *testing.T) {
	an := &stubAnalyzer{}
	svc := &ScanService{
		Repo:     memory.New(),
		Listing:  stubListing{tokens: []jupiter.Token{{Mint: mintA}, {Mint: mintA}, {Mint: mintB}, {Mint: mintC}}},
		Analyzer: an,
	}
	res, err := svc.RunScan(context.Background(), models.ScanTypeDaily, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{mintA, mintB}, an.calls)
	assert.Len(t, res.Tokens, 2)
}

func TestRunScanRejectsBadInput(t *testing.T) {
	svc := &ScanService{Repo: memory.New(), Listing: stubListing{}, Analyzer: &stubAnalyzer{}}
	_, err := svc.RunScan(context.Background(), "weekly", 10)
	require.ErrorIs(t, err, ErrInvalidScanType)
	_, err = svc.RunScan(context.Background(), models.ScanTypeTest, 0)
	require.Error(t, err)
}

func TestRunScanRecordsListingFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := &ScanService{Repo: store, Listing: stubListing{err: errors.New("feed down")}, Analyzer: &stubAnalyzer{}}

	_, err := svc.RunScan(ctx, models.ScanTypeDaily, 10)
	require.Error(t, err)

	latest, err := svc.LatestScan(ctx, models.ScanTypeDaily)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.ScanStatusFailed, latest.Status)
	require.NotNil(t, latest.Error)
	assert.Equal(t, "feed down", *latest.Error)
}

func TestClearTestScansKeepsDaily(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := &ScanService{Repo: store, Listing: stubListing{tokens: []jupiter.Token{{Mint: mintA}}}, Analyzer: &stubAnalyzer{}}

	_, err := svc.RunScan(ctx, models.ScanTypeTest, 5)
	require.NoError(t, err)
	daily, err := svc.RunScan(ctx, models.ScanTypeDaily, 5)
	require.NoError(t, err)

	n, err := svc.ClearTestScans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	scans, err := svc.ListScans(ctx, repository.ListScansParams{})
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, daily.Scan.ID, scans[0].ID)

	_, err = svc.ScanTokens(ctx, 999)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
