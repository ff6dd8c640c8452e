package utils

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FormatTimeBehind renders a lag as "6d 4h", "4h 16m", "2m 30s" or "45s".
// The largest non-zero unit is shown with at most one smaller unit.
func FormatTimeBehind(d time.Duration) string {
	if d < 0 {
		return "0s"
	}

	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		if h := hours % 24; h > 0 {
			return fmt.Sprintf("%dd %dh", days, h)
		}
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	case hours > 0:
		if m := minutes % 60; m > 0 {
			return fmt.Sprintf("%dh %dm", hours, m)
		}
		return fmt.Sprintf("%dh", hours)
	case minutes > 0:
		if s := seconds % 60; s > 0 {
			return fmt.Sprintf("%dm %ds", minutes, s)
		}
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// CalculateTimeBehind estimates wall-clock lag from a block count.
func CalculateTimeBehind(blocksBehind uint64, blockTime time.Duration) string {
	return FormatTimeBehind(time.Duration(blocksBehind) * blockTime)
}

// FormatBlockHash shortens a hash to 0x1234…abcd for display.
func FormatBlockHash(h common.Hash) string {
	s := h.Hex()
	return s[:6] + "…" + s[len(s)-4:]
}
