package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"marketmind/internal/market"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchSeries(ctx context.Context, symbol, interval string, limit int) ([]market.Bar, error) {
	args := m.Called(ctx, symbol, interval, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]market.Bar), args.Error(1)
}

func (m *MockSource) FetchQuote(ctx context.Context, symbol string) (market.Quote, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(market.Quote), args.Error(1)
}

type MockAgent struct {
	mock.Mock
	name string
}

func (m *MockAgent) Name() string { return m.name }

func (m *MockAgent) Analyze(ctx context.Context, snap market.Snapshot, portfolio PortfolioSnapshot) (TradingSignal, error) {
	args := m.Called(ctx, snap, portfolio)
	return args.Get(0).(TradingSignal), args.Error(1)
}

func (m *MockAgent) Metrics() AgentMetrics {
	args := m.Called()
	return args.Get(0).(AgentMetrics)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordAnalysis(ctx context.Context, result AnalysisResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func newTestEngine(t *testing.T, source market.Source, agents []Agent, recorder Recorder) *Engine {
	t.Helper()
	engine, err := NewEngine(source, nil, agents, NewAggregator(nil, 1.0), recorder, EngineConfig{})
	assert.NoError(t, err)
	return engine
}

func TestAnalyzeCollectsSignalsAndErrors(t *testing.T) {
	source := new(MockSource)
	source.On("FetchSeries", mock.Anything, "AAPL", "1h", 120).Return([]market.Bar{}, nil)
	source.On("FetchQuote", mock.Anything, "AAPL").Return(market.Quote{Symbol: "AAPL", Price: 150}, nil)

	good := &MockAgent{name: "technical"}
	good.On("Analyze", mock.Anything, mock.Anything, mock.Anything).
		Return(TradingSignal{Symbol: "AAPL", Action: ActionBuy, Confidence: 0.6}, nil)
	bad := &MockAgent{name: "sentiment"}
	bad.On("Analyze", mock.Anything, mock.Anything, mock.Anything).
		Return(TradingSignal{}, errors.New("news feed down"))

	recorder := new(MockRecorder)
	recorder.On("RecordAnalysis", mock.Anything, mock.Anything).Return(nil)

	engine := newTestEngine(t, source, []Agent{good, bad}, recorder)
	result, err := engine.Analyze(context.Background(), "AAPL")

	assert.NoError(t, err)
	assert.Len(t, result.Signals, 1)
	assert.Contains(t, result.Errors, "sentiment")
	// 出错的 agent 不参与共识，唯一有效信号胜出。
	assert.Equal(t, ActionBuy, result.Consensus.Action)
	assert.InDelta(t, 150, result.CurrentPrice, 1e-9)
	assert.NotEmpty(t, result.TraceID)
	recorder.AssertCalled(t, "RecordAnalysis", mock.Anything, mock.Anything)
}

func TestAnalyzeFailsOnSeriesError(t *testing.T) {
	source := new(MockSource)
	source.On("FetchSeries", mock.Anything, "AAPL", "1h", 120).Return(nil, errors.New("rate limited"))

	ag := &MockAgent{name: "technical"}
	engine := newTestEngine(t, source, []Agent{ag}, nil)

	_, err := engine.Analyze(context.Background(), "AAPL")
	assert.Error(t, err)
	ag.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzeAllKeepsGoingOnFailure(t *testing.T) {
	source := new(MockSource)
	source.On("FetchSeries", mock.Anything, "AAPL", "1h", 120).Return([]market.Bar{}, nil)
	source.On("FetchQuote", mock.Anything, "AAPL").Return(market.Quote{Symbol: "AAPL", Price: 150}, nil)
	source.On("FetchSeries", mock.Anything, "FAIL", "1h", 120).Return(nil, errors.New("boom"))

	ag := &MockAgent{name: "technical"}
	ag.On("Analyze", mock.Anything, mock.Anything, mock.Anything).
		Return(TradingSignal{Symbol: "AAPL", Action: ActionHold, Confidence: 0.1}, nil)

	engine := newTestEngine(t, source, []Agent{ag}, nil)
	results, err := engine.AnalyzeAll(context.Background(), []string{"AAPL", "FAIL"})

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "AAPL", results[0].Symbol)
	assert.Empty(t, results[0].Errors)
	assert.Equal(t, "FAIL", results[1].Symbol)
	assert.Contains(t, results[1].Errors, "engine")
	assert.Equal(t, ActionHold, results[1].Consensus.Action)
}

func TestAgentMetricsAggregation(t *testing.T) {
	source := new(MockSource)
	ag := &MockAgent{name: "technical"}
	ag.On("Metrics").Return(AgentMetrics{TotalSignals: 7, AvgConfidence: 0.4})

	engine := newTestEngine(t, source, []Agent{ag}, nil)
	metrics := engine.AgentMetrics()

	assert.Len(t, metrics, 1)
	assert.Equal(t, 7, metrics["technical"].TotalSignals)
}
