package model

import "time"

// 纸面交易的持久化模型。金额字段以 float64 落库，
// 精度敏感的结算运算在服务层用 decimal 完成后再写入。

// PortfolioModel maps to 'portfolios' table.
type PortfolioModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex"`
	CashBalance float64   `gorm:"column:cash_balance"`
	TotalValue  float64   `gorm:"column:total_value"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (PortfolioModel) TableName() string { return "portfolios" }

// PositionModel maps to 'positions' table.
type PositionModel struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	PortfolioID   int64     `gorm:"column:portfolio_id;index"`
	Symbol        string    `gorm:"column:symbol;index"`
	Quantity      int64     `gorm:"column:quantity"`
	AveragePrice  float64   `gorm:"column:average_price"`
	CurrentPrice  float64   `gorm:"column:current_price"`
	UnrealizedPnL float64   `gorm:"column:unrealized_pnl"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (PositionModel) TableName() string { return "positions" }

// TradeModel maps to 'trades' table.
type TradeModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	PortfolioID int64     `gorm:"column:portfolio_id;index"`
	Symbol      string    `gorm:"column:symbol;index"`
	Side        string    `gorm:"column:side"`
	Quantity    int64     `gorm:"column:quantity"`
	Price       float64   `gorm:"column:price"`
	TotalAmount float64   `gorm:"column:total_amount"`
	Strategy    string    `gorm:"column:strategy"` // 发起交易的 agent 或 consensus
	Confidence  float64   `gorm:"column:confidence"`
	ExecutedAt  time.Time `gorm:"column:executed_at"`
}

func (TradeModel) TableName() string { return "trades" }
