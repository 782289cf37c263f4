package core

import "github.com/shopspring/decimal"

var (
	rupeeThousand = decimal.NewFromInt(1_000)
	rupeeLakh     = decimal.NewFromInt(100_000)
	rupeeCrore    = decimal.NewFromInt(10_000_000)
	rupeeTen      = decimal.NewFromInt(10)
)

// FormatRupees renders v with the Indian numbering abbreviations: thousand
// (K), lakh (L) and crore (Cr), breaking at 1,000 / 100,000 / 10,000,000.
// Scaled values keep one decimal place while below ten of their unit and
// drop it from ten up. Values under a thousand print as whole rupees, so
// zero is "₹0".
//
// Examples:
//
//	FormatRupees(decimal.NewFromInt(0))         -> "₹0"
//	FormatRupees(decimal.NewFromInt(1500))      -> "₹1.5K"
//	FormatRupees(decimal.NewFromInt(24000))     -> "₹24K"
//	FormatRupees(decimal.NewFromInt(2_000_000)) -> "₹20L"
//	FormatRupees(decimal.NewFromInt(-7500))     -> "-₹7.5K"
func FormatRupees(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Abs()
	}
	switch {
	case v.GreaterThanOrEqual(rupeeCrore):
		return sign + "₹" + scaleRupees(v, rupeeCrore) + "Cr"
	case v.GreaterThanOrEqual(rupeeLakh):
		return sign + "₹" + scaleRupees(v, rupeeLakh) + "L"
	case v.GreaterThanOrEqual(rupeeThousand):
		return sign + "₹" + scaleRupees(v, rupeeThousand) + "K"
	}
	return sign + "₹" + v.Round(0).String()
}

func scaleRupees(v, unit decimal.Decimal) string {
	scaled := v.Div(unit)
	if scaled.GreaterThanOrEqual(rupeeTen) {
		return scaled.StringFixed(0)
	}
	return scaled.StringFixed(1)
}
