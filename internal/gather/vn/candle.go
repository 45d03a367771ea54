package vn

import (
	"context"
	"log/slog"
	"time"

	"vnstock/internal/domain"
	"vnstock/internal/gather"
	"vnstock/internal/util"
)

// Compile-time interface check.
var _ gather.Fetcher = (*CandleFetcher)(nil)

const (
	// DefaultCandleURL is the Vietcap OHLC chart endpoint.
	DefaultCandleURL = "https://trading.vietcap.com.vn/api/chart/OHLCChart/gap"
	// DefaultTimeFrame requests minute bars.
	DefaultTimeFrame = "ONE_MINUTE"

	// dayWindow is the span requested for one trading day.
	dayWindow = 23 * time.Hour
)

// CandlePayload is the request body of the candle endpoint.
type CandlePayload struct {
	TimeFrame string   `json:"timeFrame"`
	Symbols   []string `json:"symbols"`
	From      int64    `json:"from"`
	To        int64    `json:"to"`
}

// CandleFetcher fetches one day of candles for one symbol.
type CandleFetcher struct {
	client    *Client
	url       string
	timeFrame string
	log       *slog.Logger
}

// NewCandleFetcher creates a CandleFetcher. Empty url or timeFrame fall back
// to the defaults.
func NewCandleFetcher(client *Client, url, timeFrame string, log *slog.Logger) *CandleFetcher {
	if url == "" {
		url = DefaultCandleURL
	}
	if timeFrame == "" {
		timeFrame = DefaultTimeFrame
	}
	if log == nil {
		log = util.Discard()
	}
	return &CandleFetcher{
		client:    client,
		url:       url,
		timeFrame: timeFrame,
		log:       log.With("fetcher", "candle"),
	}
}

// Payload builds the request for symbol on day: local midnight through 23:00.
func (f *CandleFetcher) Payload(symbol string, day time.Time) CandlePayload {
	from := util.DateOf(day)
	return CandlePayload{
		TimeFrame: f.timeFrame,
		Symbols:   []string{symbol},
		From:      from.Unix(),
		To:        from.Add(dayWindow).Unix(),
	}
}

// Fetch issues one request. An empty upstream payload is an empty frame.
func (f *CandleFetcher) Fetch(ctx context.Context, symbol string, day time.Time) (*domain.Frame, error) {
	payload := f.Payload(symbol, day)
	f.log.Debug("payload", "symbol", symbol, "from", payload.From, "to", payload.To)

	raw, err := f.client.PostJSON(ctx, f.url, payload)
	if err != nil {
		return nil, err
	}
	return Normalize(raw, util.Location)
}
