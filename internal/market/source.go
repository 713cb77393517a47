package market

import "context"

// Source 抽象历史K线与实时行情的获取方式。
// 未知 symbol 返回空序列或错误，由上层判定数据是否充足。
type Source interface {
	FetchSeries(ctx context.Context, symbol, interval string, limit int) ([]Bar, error)

	FetchQuote(ctx context.Context, symbol string) (Quote, error)
}
