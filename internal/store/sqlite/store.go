package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"marketmind/internal/store/model"
)

// Store gorm + sqlite 的组合持久化。
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return newStore(db)
}

// NewFromDB 复用外部 gorm 连接（测试用内存库）。
func NewFromDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	return newStore(db)
}

func newStore(db *gorm.DB) (*Store, error) {
	models := []interface{}{
		&model.PortfolioModel{},
		&model.PositionModel{},
		&model.TradeModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetOrCreatePortfolio 按名称取组合，不存在时以初始资金创建。
func (s *Store) GetOrCreatePortfolio(ctx context.Context, name string, initialBalance float64) (model.PortfolioModel, error) {
	var portfolio model.PortfolioModel
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&portfolio).Error
	if err == nil {
		return portfolio, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PortfolioModel{}, err
	}
	portfolio = model.PortfolioModel{
		Name:        name,
		CashBalance: initialBalance,
		TotalValue:  initialBalance,
	}
	if err := s.db.WithContext(ctx).Create(&portfolio).Error; err != nil {
		return model.PortfolioModel{}, err
	}
	return portfolio, nil
}

func (s *Store) SavePortfolio(ctx context.Context, portfolio *model.PortfolioModel) error {
	return s.db.WithContext(ctx).Save(portfolio).Error
}

func (s *Store) PositionBySymbol(ctx context.Context, portfolioID int64, symbol string) (model.PositionModel, error) {
	var position model.PositionModel
	err := s.db.WithContext(ctx).
		Where("portfolio_id = ? AND symbol = ?", portfolioID, symbol).
		First(&position).Error
	return position, err
}

func (s *Store) ListPositions(ctx context.Context, portfolioID int64) ([]model.PositionModel, error) {
	var positions []model.PositionModel
	err := s.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("symbol").
		Find(&positions).Error
	return positions, err
}

func (s *Store) SavePosition(ctx context.Context, position *model.PositionModel) error {
	return s.db.WithContext(ctx).Save(position).Error
}

func (s *Store) DeletePosition(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Delete(&model.PositionModel{}, id).Error
}

func (s *Store) SaveTrade(ctx context.Context, trade *model.TradeModel) error {
	return s.db.WithContext(ctx).Create(trade).Error
}

func (s *Store) ListTrades(ctx context.Context, portfolioID int64, limit int) ([]model.TradeModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var trades []model.TradeModel
	err := s.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("executed_at DESC, id DESC").
		Limit(limit).
		Find(&trades).Error
	return trades, err
}

// IsNotFound 查询未命中的统一判定。
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
