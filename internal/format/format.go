// Package format renders numbers the way the dashboard shows them: ru-RU
// grouping, two-decimal money and a dash where a ratio has no denominator.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Dash stands in for values that cannot be computed.
const Dash = "—"

var printer = message.NewPrinter(language.Russian)

// Int rounds half away from zero and groups thousands.
func Int(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}

func Money(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// MoneyWith appends the currency code.
func MoneyWith(v float64, currency string) string {
	return Money(v) + " " + currency
}

// Pct formats a ratio as a percentage with two decimals and a dot separator.
func Pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// OrDash returns Dash when denom is zero, otherwise render(v).
func OrDash(denom, v float64, render func(float64) string) string {
	if denom == 0 {
		return Dash
	}
	return render(v)
}
