package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) InsertTokensIfAbsent(ctx context.Context, items []models.Token) (int64, error) {
	if s == nil || s.db == nil || len(items) == 0 {
		return 0, nil
	}
	var inserted int64
	for i := 0; i < len(items); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(items) {
			end = len(items)
		}
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoNothing: true,
		}).Create(items[i:end])
		if res.Error != nil {
			return inserted, res.Error
		}
		inserted += res.RowsAffected
	}
	return inserted, nil
}

func (s *Store) NextTokenForAnalysis(ctx context.Context) (*models.Token, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Token
	err := s.db.WithContext(ctx).
		Model(&models.Token{}).
		Where("needs_analysis = ?", true).
		Order(repository.AnalysisOrderSQL).
		Limit(1).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveAnalysis(ctx context.Context, update repository.AnalysisUpdate) error {
	if s == nil || s.db == nil {
		return nil
	}
	if strings.TrimSpace(update.Address) == "" {
		return fmt.Errorf("save analysis: empty address")
	}
	if update.AnalyzedAt.IsZero() {
		update.AnalyzedAt = time.Now().UTC()
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		history := update.History()
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Token{}).
			Where("address = ?", update.Address).
			Updates(map[string]any{
				"price":            update.Price,
				"price_change_24h": update.PriceChange24h,
				"volume_24h":       update.Volume24h,
				"market_cap":       update.MarketCap,
				"fdv":              update.FDV,
				"liquidity":        update.Liquidity,
				"holder_count":     update.HolderCount,
				"score":            update.Score,
				"needs_analysis":   false,
				"is_new":           false,
				"last_analysis_at": update.AnalyzedAt,
				"updated_at":       update.AnalyzedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("save analysis %s: %w", update.Address, repository.ErrNotFound)
		}
		return nil
	})
}

func (s *Store) RequeueTokens(ctx context.Context, addresses []string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	addresses = cleanStrings(addresses)
	if len(addresses) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Token{}).
		Where("address IN ?", addresses).
		Update("needs_analysis", true)
	return res.RowsAffected, res.Error
}

const recomputeRanksSQL = `
WITH ranked AS (
	SELECT address, ROW_NUMBER() OVER (ORDER BY ` + repository.RankOrderSQL + `) AS new_rank
	FROM tokens
	WHERE score IS NOT NULL
)
UPDATE tokens t
SET rank = CASE WHEN r.new_rank <= @k THEN r.new_rank ELSE NULL END
FROM ranked r
WHERE t.address = r.address
  AND t.rank IS DISTINCT FROM (CASE WHEN r.new_rank <= @k THEN r.new_rank ELSE NULL END)`

func (s *Store) RecomputeRanks(ctx context.Context, k int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if k <= 0 {
		return 0, fmt.Errorf("recompute ranks: k must be positive, got %d", k)
	}
	var ranked int64
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec("UPDATE tokens SET rank = NULL WHERE score IS NULL AND rank IS NOT NULL").Error; err != nil {
			return err
		}
		if err := tx.Exec(recomputeRanksSQL, map[string]any{"k": k}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Token{}).Where("rank IS NOT NULL").Count(&ranked).Error
	})
	if err != nil {
		return 0, err
	}
	return ranked, nil
}

func (s *Store) ListRankedTokens(ctx context.Context, limit int) ([]models.Token, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Token
	err := s.db.WithContext(ctx).
		Model(&models.Token{}).
		Where("rank IS NOT NULL").
		Order("rank asc").
		Limit(normalizeLimit(limit, 20)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListTokens(ctx context.Context, params repository.ListTokensParams) ([]models.Token, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyTokenFilters(s.db.WithContext(ctx).Model(&models.Token{}), params)
	query = applyTokenOrder(query, params.OrderBy, params.Asc)
	var items []models.Token
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTokens(ctx context.Context, params repository.ListTokensParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := applyTokenFilters(s.db.WithContext(ctx).Model(&models.Token{}), params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) CountPendingTokens(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Token{}).Where("needs_analysis = ?", true).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) GetToken(ctx context.Context, address string) (*models.Token, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}
	var item models.Token
	err := s.db.WithContext(ctx).Model(&models.Token{}).Where("address = ?", address).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTokenHistory(ctx context.Context, address string, limit int) ([]models.TokenMetricsHistory, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TokenMetricsHistory
	err := s.db.WithContext(ctx).
		Model(&models.TokenMetricsHistory{}).
		Where("token_address = ?", strings.TrimSpace(address)).
		Order("captured_at desc").
		Order("id desc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateScanWithTokens(ctx context.Context, scan *models.Scan, items []models.ScanToken) error {
	if s == nil || s.db == nil || scan == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(scan).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].ScanID = scan.ID
		}
		return createInBatches(tx, items, insertBatchSize)
	})
}

func (s *Store) ListScans(ctx context.Context, params repository.ListScansParams) ([]models.Scan, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Scan{})
	if params.ScanType != nil && strings.TrimSpace(*params.ScanType) != "" {
		query = query.Where("scan_type = ?", strings.TrimSpace(*params.ScanType))
	}
	query = applyOrder(query, "scan_date", nil, "scan_date").Order("id desc")
	var items []models.Scan
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetScan(ctx context.Context, id uint64) (*models.Scan, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Scan
	err := s.db.WithContext(ctx).Model(&models.Scan{}).Where("id = ?", id).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) LatestScan(ctx context.Context, scanType string) (*models.Scan, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Scan{})
	if scanType = strings.TrimSpace(scanType); scanType != "" {
		query = query.Where("scan_type = ?", scanType)
	}
	var item models.Scan
	err := query.Order("scan_date desc").Order("id desc").Limit(1).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListScanTokens(ctx context.Context, scanID uint64) ([]models.ScanToken, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ScanToken
	err := s.db.WithContext(ctx).
		Model(&models.ScanToken{}).
		Where("scan_id = ?", scanID).
		Order("rank asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteScansByType(ctx context.Context, scanType string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	scanType = strings.TrimSpace(scanType)
	if scanType == "" {
		return 0, nil
	}
	var deleted int64
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		var ids []uint64
		if err := tx.Model(&models.Scan{}).Where("scan_type = ?", scanType).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("scan_id IN ?", ids).Delete(&models.ScanToken{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Scan{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	asc := true
	query = applyOrder(query, "key", &asc, "key")
	var items []models.SystemSetting
	if err := query.Limit(normalizeLimit(params.Limit, 500)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

const insertBatchSize = 200

func applyTokenFilters(query *gorm.DB, params repository.ListTokensParams) *gorm.DB {
	if params.NeedsAnalysis != nil {
		query = query.Where("needs_analysis = ?", *params.NeedsAnalysis)
	}
	if params.Ranked != nil {
		if *params.Ranked {
			query = query.Where("rank IS NOT NULL")
		} else {
			query = query.Where("rank IS NULL")
		}
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		term := strings.TrimSpace(*params.Search)
		pattern := "%" + term + "%"
		query = query.Where("address = ? OR name ILIKE ? OR symbol ILIKE ?", term, pattern, pattern)
	}
	return query
}

// applyTokenOrder keeps NULL scores and ranks at the end in either direction.
func applyTokenOrder(query *gorm.DB, orderBy string, asc *bool) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if _, ok := repository.TokenOrderColumns[column]; !ok {
		column = "score"
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction + " NULLS LAST").Order("address asc")
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = insertBatchSize
	}
	return db.CreateInBatches(items, batchSize).Error
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
