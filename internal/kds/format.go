package kds

import (
	"fmt"
	"time"
)

// FormatPrice renders a price for display, e.g. "25.00".
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// TimeElapsed renders how long ago an order was created, e.g. "5 min ago".
func TimeElapsed(from, now time.Time) string {
	if from.IsZero() {
		return "Unknown time"
	}

	minutes := int(now.Sub(from).Minutes())
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%d min ago", minutes)
	default:
		return fmt.Sprintf("%dh %dm ago", minutes/60, minutes%60)
	}
}
