package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"helmsman/internal/position"
	"helmsman/internal/risk"
	"helmsman/internal/store/model"
	"helmsman/internal/types"
)

const riskStateRowID = 1

// GormStore 基于 Gorm + SQLite 实现 store.Store。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 打开（必要时创建）数据库并完成迁移。
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 数据库路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gorm store: 打开数据库失败: %w", err)
	}
	if err := db.AutoMigrate(&model.RiskStateModel{}, &model.TradeOutcomeModel{}, &model.PositionModel{}); err != nil {
		return nil, fmt.Errorf("gorm store: 迁移失败: %w", err)
	}
	return &GormStore{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// LoadRiskState 读取风控状态；无记录时返回 (nil, nil)。
func (s *GormStore) LoadRiskState(ctx context.Context) (*risk.RiskState, error) {
	var rec model.RiskStateModel
	err := s.db.WithContext(ctx).First(&rec, riskStateRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &risk.RiskState{
		Day:         rec.Day,
		DailyPnL:    rec.DailyPnL,
		LockedUntil: rec.LockedUntil,
		PeakBalance: rec.PeakBalance,
		MaxDrawdown: rec.MaxDrawdown,
	}, nil
}

func (s *GormStore) SaveRiskState(ctx context.Context, st risk.RiskState) error {
	rec := model.RiskStateModel{
		ID:          riskStateRowID,
		Day:         st.Day,
		DailyPnL:    st.DailyPnL,
		LockedUntil: st.LockedUntil,
		PeakBalance: st.PeakBalance,
		MaxDrawdown: st.MaxDrawdown,
		UpdatedAt:   time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

// AppendOutcome 追加一条胜负记录并裁掉窗口之外的旧记录。
func (s *GormStore) AppendOutcome(ctx context.Context, o risk.Outcome, keep int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := model.TradeOutcomeModel{PnL: o.PnL, Win: o.Win, At: o.At}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if keep <= 0 {
			return nil
		}
		// 只保留最新 keep 条
		sub := tx.Model(&model.TradeOutcomeModel{}).
			Select("id").Order("id DESC").Limit(keep)
		return tx.Where("id NOT IN (?)", sub).Delete(&model.TradeOutcomeModel{}).Error
	})
}

func (s *GormStore) ListOutcomes(ctx context.Context, limit int) ([]risk.Outcome, error) {
	var recs []model.TradeOutcomeModel
	q := s.db.WithContext(ctx).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]risk.Outcome, 0, len(recs))
	for _, r := range recs {
		out = append(out, risk.Outcome{PnL: r.PnL, Win: r.Win, At: r.At})
	}
	return out, nil
}

func (s *GormStore) SavePosition(ctx context.Context, p *position.Position, meta map[string]any) error {
	if p == nil {
		return fmt.Errorf("gorm store: nil position")
	}
	rec := model.PositionModel{
		ID:              p.ID,
		Symbol:          p.Symbol,
		Side:            string(p.Side),
		EntryPrice:      p.EntryPrice,
		Quantity:        p.Quantity,
		InitialQuantity: p.InitialQuantity,
		Leverage:        p.Leverage,
		StopLoss:        p.StopLoss,
		TakeProfit:      p.TakeProfit,
		TrailingActive:  p.TrailingActive,
		TrailingStop:    p.TrailingStop,
		PartialClosed:   p.PartialClosed,
		Score:           p.Score,
		Status:          string(p.Status),
		RealizedPnL:     p.RealizedPnL,
		OpenedAt:        p.OpenedAt,
	}
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("gorm store: 序列化 meta 失败: %w", err)
		}
		rec.Meta = raw
	}
	assigns := []string{
		"quantity", "stop_loss", "take_profit", "trailing_active",
		"trailing_stop", "partial_closed", "status", "realized_pn_l", "updated_at",
	}
	if len(meta) > 0 {
		assigns = append(assigns, "meta")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(assigns),
	}).Create(&rec).Error
}

func (s *GormStore) DeletePosition(ctx context.Context, symbol string) error {
	return s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Delete(&model.PositionModel{}).Error
}

// ListOpenPositions 读取全部未终结的持仓检查点。
func (s *GormStore) ListOpenPositions(ctx context.Context) ([]*position.Position, error) {
	var recs []model.PositionModel
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{string(position.StatusOpen), string(position.StatusClosing)}).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]*position.Position, 0, len(recs))
	for _, r := range recs {
		out = append(out, &position.Position{
			ID:              r.ID,
			Symbol:          r.Symbol,
			Side:            types.Side(r.Side),
			EntryPrice:      r.EntryPrice,
			CurrentPrice:    r.EntryPrice,
			Quantity:        r.Quantity,
			InitialQuantity: r.InitialQuantity,
			Leverage:        r.Leverage,
			StopLoss:        r.StopLoss,
			TakeProfit:      r.TakeProfit,
			TrailingActive:  r.TrailingActive,
			TrailingStop:    r.TrailingStop,
			PartialClosed:   r.PartialClosed,
			Score:           r.Score,
			Status:          position.Status(r.Status),
			RealizedPnL:     r.RealizedPnL,
			OpenedAt:        r.OpenedAt,
		})
	}
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
