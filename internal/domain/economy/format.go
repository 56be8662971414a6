package economy

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatNumber renders a signal amount for display.
func FormatNumber(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fb", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fm", v/1e6)
	case v >= 1e4:
		return printer.Sprintf("%.0f", v)
	case v >= 100:
		return printer.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
