package calculator

import (
	"time"

	"SwingFilter/internal/model"
)

// WeekEnding returns the Friday that closes the week containing t.
// Saturday and Sunday roll forward to the next Friday.
func WeekEnding(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(time.Friday) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, offset)
}

// ToWeekly resamples ascending daily bars into Friday-anchored weekly candles:
// first open, max high, min low, last close, summed volume. Each candle is
// dated on its Friday; weeks without bars produce no candle.
func ToWeekly(daily []model.OHLCV) []model.OHLCV {
	var out []model.OHLCV
	for _, b := range daily {
		end := WeekEnding(b.Time)
		n := len(out)
		if n > 0 && out[n-1].Time.Equal(end) {
			w := &out[n-1]
			if b.High > w.High {
				w.High = b.High
			}
			if b.Low < w.Low {
				w.Low = b.Low
			}
			w.Close = b.Close
			w.Volume += b.Volume
			continue
		}
		out = append(out, model.OHLCV{
			Time:   end,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return out
}
