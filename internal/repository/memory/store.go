// Package memory is an in-process implementation of repository.Repository.
// It backs unit tests and the store-less CLI scan; it is not durable.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	tokens   map[string]*models.Token
	history  []models.TokenMetricsHistory
	scans    []models.Scan
	scanToks map[uint64][]models.ScanToken
	settings map[string]models.SystemSetting

	nextHistoryID uint64
	nextScanID    uint64
	nextSettingID uint64

	failNext error
}

func New() *Store {
	return &Store{
		tokens:   make(map[string]*models.Token),
		scanToks: make(map[uint64][]models.ScanToken),
		settings: make(map[string]models.SystemSetting),
	}
}

var _ repository.Repository = (*Store)(nil)

// FailNext makes the next mutating call return err.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *Store) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Store) InsertTokensIfAbsent(_ context.Context, items []models.Token) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return 0, err
	}
	var inserted int64
	now := time.Now().UTC()
	for _, item := range items {
		if item.Address == "" {
			continue
		}
		if _, ok := s.tokens[item.Address]; ok {
			continue
		}
		cp := item
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
		cp.UpdatedAt = now
		s.tokens[cp.Address] = &cp
		inserted++
	}
	return inserted, nil
}

func (s *Store) NextTokenForAnalysis(_ context.Context) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.Token
	for _, t := range s.tokens {
		if !t.NeedsAnalysis {
			continue
		}
		if best == nil || repository.AnalysisLess(t, best) {
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *Store) SaveAnalysis(_ context.Context, update repository.AnalysisUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	t, ok := s.tokens[update.Address]
	if !ok {
		return fmt.Errorf("save analysis %s: %w", update.Address, repository.ErrNotFound)
	}
	if update.AnalyzedAt.IsZero() {
		update.AnalyzedAt = time.Now().UTC()
	}
	s.nextHistoryID++
	h := update.History()
	h.ID = s.nextHistoryID
	s.history = append(s.history, h)

	score := update.Score
	at := update.AnalyzedAt
	t.Price = update.Price
	t.PriceChange24h = update.PriceChange24h
	t.Volume24h = update.Volume24h
	t.MarketCap = update.MarketCap
	t.FDV = update.FDV
	t.Liquidity = update.Liquidity
	t.HolderCount = update.HolderCount
	t.Score = &score
	t.NeedsAnalysis = false
	t.IsNew = false
	t.LastAnalysisAt = &at
	t.UpdatedAt = at
	return nil
}

func (s *Store) RequeueTokens(_ context.Context, addresses []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return 0, err
	}
	var n int64
	for _, addr := range addresses {
		if t, ok := s.tokens[strings.TrimSpace(addr)]; ok {
			t.NeedsAnalysis = true
			n++
		}
	}
	return n, nil
}

func (s *Store) RecomputeRanks(_ context.Context, k int) (int64, error) {
	if k <= 0 {
		return 0, fmt.Errorf("recompute ranks: k must be positive, got %d", k)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return 0, err
	}
	all := make([]*models.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		all = append(all, t)
	}
	ranks := repository.AssignRanks(all, k)
	for _, t := range all {
		if r, ok := ranks[t.Address]; ok {
			rank := r
			t.Rank = &rank
		} else {
			t.Rank = nil
		}
	}
	return int64(len(ranks)), nil
}

func (s *Store) ListRankedTokens(_ context.Context, limit int) ([]models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Token, 0)
	for _, t := range s.tokens {
		if t.Rank != nil {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Rank < *out[j].Rank })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListTokens(_ context.Context, params repository.ListTokensParams) ([]models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.filterTokens(params)
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.Score != nil && b.Score == nil:
			return true
		case a.Score == nil && b.Score != nil:
			return false
		case a.Score != nil && *a.Score != *b.Score:
			if params.Asc != nil && *params.Asc {
				return *a.Score < *b.Score
			}
			return *a.Score > *b.Score
		}
		return a.Address < b.Address
	})
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []models.Token{}, nil
	}
	items = items[offset:]
	if params.Limit > 0 && len(items) > params.Limit {
		items = items[:params.Limit]
	}
	return items, nil
}

func (s *Store) CountTokens(_ context.Context, params repository.ListTokensParams) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterTokens(params))), nil
}

func (s *Store) CountPendingTokens(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.tokens {
		if t.NeedsAnalysis {
			n++
		}
	}
	return n, nil
}

func (s *Store) filterTokens(params repository.ListTokensParams) []models.Token {
	var term string
	if params.Search != nil {
		term = strings.ToLower(strings.TrimSpace(*params.Search))
	}
	out := make([]models.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		if params.NeedsAnalysis != nil && t.NeedsAnalysis != *params.NeedsAnalysis {
			continue
		}
		if params.Ranked != nil && (t.Rank != nil) != *params.Ranked {
			continue
		}
		if term != "" && strings.ToLower(t.Address) != term &&
			!strings.Contains(strings.ToLower(t.Name), term) &&
			!strings.Contains(strings.ToLower(t.Symbol), term) {
			continue
		}
		out = append(out, *t)
	}
	return out
}

func (s *Store) GetToken(_ context.Context, address string) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[strings.TrimSpace(address)]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTokenHistory(_ context.Context, address string, limit int) ([]models.TokenMetricsHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TokenMetricsHistory, 0)
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].TokenAddress != address {
			continue
		}
		out = append(out, s.history[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateScanWithTokens(_ context.Context, scan *models.Scan, items []models.ScanToken) error {
	if scan == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.nextScanID++
	scan.ID = s.nextScanID
	if scan.ScanDate.IsZero() {
		scan.ScanDate = time.Now().UTC()
	}
	s.scans = append(s.scans, *scan)
	stored := make([]models.ScanToken, len(items))
	for i := range items {
		items[i].ScanID = scan.ID
		stored[i] = items[i]
	}
	s.scanToks[scan.ID] = stored
	return nil
}

func (s *Store) ListScans(_ context.Context, params repository.ListScansParams) ([]models.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Scan, 0, len(s.scans))
	for i := len(s.scans) - 1; i >= 0; i-- {
		if params.ScanType != nil && s.scans[i].ScanType != *params.ScanType {
			continue
		}
		out = append(out, s.scans[i])
	}
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return []models.Scan{}, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *Store) GetScan(_ context.Context, id uint64) (*models.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sc := range s.scans {
		if sc.ID == id {
			cp := sc
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) LatestScan(_ context.Context, scanType string) (*models.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.scans) - 1; i >= 0; i-- {
		if scanType == "" || s.scans[i].ScanType == scanType {
			cp := s.scans[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListScanTokens(_ context.Context, scanID uint64) ([]models.ScanToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.scanToks[scanID]
	out := make([]models.ScanToken, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (s *Store) DeleteScansByType(_ context.Context, scanType string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return 0, err
	}
	kept := s.scans[:0]
	var deleted int64
	for _, sc := range s.scans {
		if sc.ScanType == scanType {
			delete(s.scanToks, sc.ID)
			deleted++
			continue
		}
		kept = append(kept, sc)
	}
	s.scans = kept
	return deleted, nil
}

func (s *Store) UpsertSystemSetting(_ context.Context, item *models.SystemSetting) error {
	if item == nil || strings.TrimSpace(item.Key) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	now := time.Now().UTC()
	existing, ok := s.settings[item.Key]
	if ok {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
	} else {
		s.nextSettingID++
		item.ID = s.nextSettingID
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	s.settings[item.Key] = *item
	return nil
}

func (s *Store) GetSystemSettingByKey(_ context.Context, key string) (*models.SystemSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.settings[strings.TrimSpace(key)]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(_ context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SystemSetting, 0, len(s.settings))
	for k, v := range s.settings {
		if params.Prefix != nil && !strings.HasPrefix(k, *params.Prefix) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// History returns a copy of all history rows in insertion order.
func (s *Store) History() []models.TokenMetricsHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TokenMetricsHistory, len(s.history))
	copy(out, s.history)
	return out
}
