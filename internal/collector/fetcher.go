package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SwingFilter/internal/model"
)

var (
	// ErrNoData means the source returned no usable bars for the range.
	ErrNoData = errors.New("no data")
	// ErrMalformed means the bars failed validation.
	ErrMalformed = errors.New("malformed bars")
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	// FetchBars returns ascending daily bars dated within [start, end].
	FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}

// HTTPError carries a non-200 response from a data source.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Validate checks ordering and price sanity of a bar series.
func Validate(bars []model.OHLCV) error {
	for i, b := range bars {
		if b.Close <= 0 || b.High < b.Low || b.Volume < 0 {
			return fmt.Errorf("bar %d (%s): %w", i, b.Time.Format("2006-01-02"), ErrMalformed)
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("bar %d (%s) out of order: %w", i, b.Time.Format("2006-01-02"), ErrMalformed)
		}
	}
	return nil
}

// dayOf truncates t to its calendar date in UTC.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// clip keeps bars dated within [start, end], compared by calendar date.
func clip(bars []model.OHLCV, start, end time.Time) []model.OHLCV {
	s, e := dayOf(start), dayOf(end)
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		d := dayOf(b.Time)
		if d.Before(s) || d.After(e) {
			continue
		}
		out = append(out, b)
	}
	return out
}
