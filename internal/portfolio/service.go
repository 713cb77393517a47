package portfolio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"marketmind/internal/decision"
	"marketmind/internal/logger"
	"marketmind/internal/market"
	"marketmind/internal/store/model"
	"marketmind/internal/store/sqlite"
)

// 中文说明：
// 纸面交易组合服务。引擎只依赖 Snapshot 提供的组合快照；
// 成交、持仓与均价结算用 decimal 精确计算后落库。

// DefaultPortfolioName 默认组合名称。
const DefaultPortfolioName = "Main Portfolio"

// TradeRequest 一笔纸面成交请求。
type TradeRequest struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Quantity   int64   `json:"quantity"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
}

// TradeResult 成交回执。
type TradeResult struct {
	TradeID       int64   `json:"trade_id"`
	Symbol        string  `json:"symbol"`
	Action        string  `json:"action"`
	Quantity      int64   `json:"quantity"`
	Price         float64 `json:"price"`
	TotalAmount   float64 `json:"total_amount"`
	RemainingCash float64 `json:"remaining_cash"`
}

// PositionView 持仓明细（含浮动盈亏）。
type PositionView struct {
	Symbol        string  `json:"symbol"`
	Quantity      int64   `json:"quantity"`
	AveragePrice  float64 `json:"average_price"`
	CurrentPrice  float64 `json:"current_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	PnLPercent    float64 `json:"pnl_percent"`
}

// Summary 组合汇总。
type Summary struct {
	Name           string         `json:"name"`
	CashBalance    float64        `json:"cash_balance"`
	TotalValue     float64        `json:"total_value"`
	TotalReturn    float64        `json:"total_return"`
	TotalReturnPct float64        `json:"total_return_pct"`
	UnrealizedPnL  float64        `json:"unrealized_pnl"`
	Positions      []PositionView `json:"positions"`
}

// Service 组合服务。写路径用互斥锁保证单写者。
type Service struct {
	store          *sqlite.Store
	source         market.Source
	name           string
	initialBalance float64

	mu sync.Mutex
}

func NewService(store *sqlite.Store, source market.Source, name string, initialBalance float64) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultPortfolioName
	}
	if initialBalance <= 0 {
		initialBalance = 100000
	}
	return &Service{
		store:          store,
		source:         source,
		name:           name,
		initialBalance: initialBalance,
	}, nil
}

// Snapshot 实现 decision.PortfolioProvider：总值、现金与持仓市值。
// 行情刷新尽力而为，拿不到时用最近已知价。
func (s *Service) Snapshot(ctx context.Context) (decision.PortfolioSnapshot, error) {
	portfolio, positions, err := s.refresh(ctx)
	if err != nil {
		return decision.PortfolioSnapshot{}, err
	}
	snap := decision.PortfolioSnapshot{
		TotalValue:  portfolio.TotalValue,
		CashBalance: portfolio.CashBalance,
		Positions:   make([]decision.PositionSnapshot, 0, len(positions)),
	}
	for _, pos := range positions {
		snap.Positions = append(snap.Positions, decision.PositionSnapshot{
			Symbol:      pos.Symbol,
			MarketValue: pos.CurrentPrice * float64(pos.Quantity),
		})
	}
	return snap, nil
}

// ExecuteTrade 执行一笔纸面成交并更新持仓与现金。
func (s *Service) ExecuteTrade(ctx context.Context, req TradeRequest) (TradeResult, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return TradeResult{}, fmt.Errorf("symbol is required")
	}
	if req.Action != decision.ActionBuy && req.Action != decision.ActionSell {
		return TradeResult{}, fmt.Errorf("unsupported action %q", req.Action)
	}
	if req.Quantity <= 0 {
		return TradeResult{}, fmt.Errorf("quantity must be positive")
	}
	if s.source == nil {
		return TradeResult{}, fmt.Errorf("market source unavailable")
	}
	quote, err := s.source.FetchQuote(ctx, req.Symbol)
	if err != nil {
		return TradeResult{}, fmt.Errorf("fetching price for %s: %w", req.Symbol, err)
	}
	if quote.Price <= 0 {
		return TradeResult{}, fmt.Errorf("no valid price for %s", req.Symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	portfolio, err := s.store.GetOrCreatePortfolio(ctx, s.name, s.initialBalance)
	if err != nil {
		return TradeResult{}, err
	}

	price := decimal.NewFromFloat(quote.Price)
	quantity := decimal.NewFromInt(req.Quantity)
	total := price.Mul(quantity)
	cash := decimal.NewFromFloat(portfolio.CashBalance)

	switch req.Action {
	case decision.ActionBuy:
		if cash.LessThan(total) {
			return TradeResult{}, fmt.Errorf("insufficient cash balance")
		}
		cash = cash.Sub(total)
	case decision.ActionSell:
		position, err := s.store.PositionBySymbol(ctx, portfolio.ID, req.Symbol)
		if err != nil || position.Quantity < req.Quantity {
			return TradeResult{}, fmt.Errorf("insufficient position in %s", req.Symbol)
		}
		cash = cash.Add(total)
	}

	if err := s.applyPosition(ctx, portfolio.ID, req, price); err != nil {
		return TradeResult{}, err
	}

	trade := model.TradeModel{
		PortfolioID: portfolio.ID,
		Symbol:      req.Symbol,
		Side:        req.Action,
		Quantity:    req.Quantity,
		Price:       quote.Price,
		TotalAmount: total.InexactFloat64(),
		Strategy:    req.Strategy,
		Confidence:  req.Confidence,
		ExecutedAt:  time.Now(),
	}
	if err := s.store.SaveTrade(ctx, &trade); err != nil {
		return TradeResult{}, err
	}

	portfolio.CashBalance = cash.InexactFloat64()
	portfolio.UpdatedAt = time.Now()
	if err := s.store.SavePortfolio(ctx, &portfolio); err != nil {
		return TradeResult{}, err
	}
	// 总值在下一次 refresh 时按现价重算，这里先用现金+持仓估一遍。
	if _, _, err := s.refreshLocked(ctx); err != nil {
		logger.Warnf("portfolio value refresh after trade failed: %v", err)
	}

	return TradeResult{
		TradeID:       trade.ID,
		Symbol:        req.Symbol,
		Action:        req.Action,
		Quantity:      req.Quantity,
		Price:         quote.Price,
		TotalAmount:   trade.TotalAmount,
		RemainingCash: portfolio.CashBalance,
	}, nil
}

// Summary 组合汇总视图。
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	portfolio, positions, err := s.refresh(ctx)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{
		Name:        portfolio.Name,
		CashBalance: portfolio.CashBalance,
		TotalValue:  portfolio.TotalValue,
		Positions:   make([]PositionView, 0, len(positions)),
	}
	var unrealized float64
	for _, pos := range positions {
		view := PositionView{
			Symbol:        pos.Symbol,
			Quantity:      pos.Quantity,
			AveragePrice:  pos.AveragePrice,
			CurrentPrice:  pos.CurrentPrice,
			MarketValue:   pos.CurrentPrice * float64(pos.Quantity),
			UnrealizedPnL: pos.UnrealizedPnL,
		}
		if pos.AveragePrice > 0 {
			view.PnLPercent = (pos.CurrentPrice - pos.AveragePrice) / pos.AveragePrice * 100
		}
		unrealized += pos.UnrealizedPnL
		out.Positions = append(out.Positions, view)
	}
	out.UnrealizedPnL = unrealized
	out.TotalReturn = portfolio.TotalValue - s.initialBalance
	out.TotalReturnPct = out.TotalReturn / s.initialBalance * 100
	return out, nil
}

// TradeHistory 最近成交记录（新到旧）。
func (s *Service) TradeHistory(ctx context.Context, limit int) ([]model.TradeModel, error) {
	portfolio, err := s.store.GetOrCreatePortfolio(ctx, s.name, s.initialBalance)
	if err != nil {
		return nil, err
	}
	return s.store.ListTrades(ctx, portfolio.ID, limit)
}

// applyPosition 更新或建立持仓，均价用 decimal 结算。
func (s *Service) applyPosition(ctx context.Context, portfolioID int64, req TradeRequest, price decimal.Decimal) error {
	position, err := s.store.PositionBySymbol(ctx, portfolioID, req.Symbol)
	if err != nil {
		if !sqlite.IsNotFound(err) {
			return err
		}
		if req.Action != decision.ActionBuy {
			return fmt.Errorf("no position to sell in %s", req.Symbol)
		}
		position = model.PositionModel{
			PortfolioID:  portfolioID,
			Symbol:       req.Symbol,
			Quantity:     req.Quantity,
			AveragePrice: price.InexactFloat64(),
			CurrentPrice: price.InexactFloat64(),
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		return s.store.SavePosition(ctx, &position)
	}

	switch req.Action {
	case decision.ActionBuy:
		oldCost := decimal.NewFromFloat(position.AveragePrice).Mul(decimal.NewFromInt(position.Quantity))
		newCost := price.Mul(decimal.NewFromInt(req.Quantity))
		totalQty := position.Quantity + req.Quantity
		position.AveragePrice = oldCost.Add(newCost).Div(decimal.NewFromInt(totalQty)).InexactFloat64()
		position.Quantity = totalQty
	case decision.ActionSell:
		position.Quantity -= req.Quantity
		if position.Quantity <= 0 {
			return s.store.DeletePosition(ctx, position.ID)
		}
	}
	position.CurrentPrice = price.InexactFloat64()
	position.UnrealizedPnL = (position.CurrentPrice - position.AveragePrice) * float64(position.Quantity)
	position.UpdatedAt = time.Now()
	return s.store.SavePosition(ctx, &position)
}

func (s *Service) refresh(ctx context.Context) (model.PortfolioModel, []model.PositionModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

// refreshLocked 刷新各持仓现价并重算组合总值。调用方必须已持有 s.mu。
func (s *Service) refreshLocked(ctx context.Context) (model.PortfolioModel, []model.PositionModel, error) {
	portfolio, err := s.store.GetOrCreatePortfolio(ctx, s.name, s.initialBalance)
	if err != nil {
		return model.PortfolioModel{}, nil, err
	}
	positions, err := s.store.ListPositions(ctx, portfolio.ID)
	if err != nil {
		return model.PortfolioModel{}, nil, err
	}

	total := decimal.NewFromFloat(portfolio.CashBalance)
	for i := range positions {
		pos := &positions[i]
		if s.source != nil {
			if quote, err := s.source.FetchQuote(ctx, pos.Symbol); err == nil && quote.Price > 0 {
				pos.CurrentPrice = quote.Price
			}
		}
		pos.UnrealizedPnL = (pos.CurrentPrice - pos.AveragePrice) * float64(pos.Quantity)
		pos.UpdatedAt = time.Now()
		if err := s.store.SavePosition(ctx, pos); err != nil {
			return model.PortfolioModel{}, nil, err
		}
		total = total.Add(decimal.NewFromFloat(pos.CurrentPrice).Mul(decimal.NewFromInt(pos.Quantity)))
	}
	portfolio.TotalValue = total.InexactFloat64()
	portfolio.UpdatedAt = time.Now()
	if err := s.store.SavePortfolio(ctx, &portfolio); err != nil {
		return model.PortfolioModel{}, nil, err
	}
	return portfolio, positions, nil
}
