package report

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatIDR abbreviates an amount with a B/M/K suffix.
func FormatIDR(amount float64) string {
	a := math.Abs(amount)
	switch {
	case a >= 1e9:
		return fmt.Sprintf("%.1fB IDR", amount/1e9)
	case a >= 1e6:
		return fmt.Sprintf("%.1fM IDR", amount/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.0fK IDR", amount/1e3)
	default:
		return fmt.Sprintf("%.0f IDR", amount)
	}
}

// FormatRupiah renders a whole-rupiah amount with Indonesian digit grouping.
func FormatRupiah(amount float64) string {
	return idPrinter.Sprintf("Rp%d", int64(math.Round(amount)))
}

// FormatPrice renders a share price with Indonesian digit grouping.
func FormatPrice(price float64) string {
	return idPrinter.Sprintf("%d", int64(math.Round(price)))
}
