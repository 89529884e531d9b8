// Package display renders prediction results for people.
package display

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCharge renders v with thousands grouping and two decimals, prefixed
// by the currency label, e.g. "Rs 4,471.89".
func FormatCharge(currency string, v float64) string {
	amount := printer.Sprintf("%.2f", v)
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return amount
	}
	return currency + " " + amount
}

// FormatBMI rounds bmi to two decimals for display.
func FormatBMI(bmi float64) string {
	return fmt.Sprintf("%.2f", bmi)
}

// BMICategory is the WHO adult band for bmi.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "underweight"
	case bmi < 25:
		return "normal"
	case bmi < 30:
		return "overweight"
	default:
		return "obese"
	}
}
