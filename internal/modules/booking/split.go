package booking

import (
	"math"
	"strconv"
	"strings"

	"taxisync/internal/platform"
	"taxisync/internal/types"
)

// SplitPassengers divides n passengers into groups of at most MaxGroupSize:
// full groups first, the remainder (n mod 8, or 8) last.
func SplitPassengers(n int) []int {
	if n <= 0 {
		return nil
	}
	groups := make([]int, 0, (n+MaxGroupSize-1)/MaxGroupSize)
	for n > MaxGroupSize {
		groups = append(groups, MaxGroupSize)
		n -= MaxGroupSize
	}
	return append(groups, n)
}

// splitLuggage spreads luggage over groups as evenly as possible, earlier groups
// taking the remainder.
func splitLuggage(luggage, groups int) []int {
	out := make([]int, groups)
	if groups == 0 || luggage <= 0 {
		return out
	}
	base, rem := luggage/groups, luggage%groups
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

// manualPricing parses an operator-entered fare. The result is always both manual and locked.
func manualPricing(price string) (platform.Pricing, error) {
	s := strings.TrimSpace(price)
	s = strings.TrimPrefix(s, "£")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return platform.Pricing{}, badRequest("invalid price %q", price)
	}
	return platform.Pricing{Price: v, IsManual: true, IsLocked: true}, nil
}

func parseID(id types.ID) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(id)), 10, 64)
	if err != nil || n <= 0 {
		return 0, badRequest("invalid booking id %q", id)
	}
	return n, nil
}

func bookingID(b *Booking) types.ID {
	return types.ID(strconv.FormatInt(b.ID, 10))
}
