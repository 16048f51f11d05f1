/*
fee.go - Per-occupant fee calculation

PURPOSE:
  The fee is a pure value: basePrice(category) / occupants(sharing).
  Nothing here touches storage. Free-text category and sharing strings
  from the persisted rows or API callers are parsed exactly once, at
  this boundary, into the closed Category/Sharing variants; internal
  logic never sees strings again.

NUMERIC POLICY:
  All arithmetic stays in decimal.Decimal. Two-decimal rounding (half
  away from zero) happens only when an amount is inserted into the
  payment ledger, never mid-calculation.

SEE ALSO:
  - coordinator.go: Uses Fee for due/refund arithmetic
  - reconciler.go: Uses Fee when repairing drifted dues
*/
package hostel

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Fixed total room cost per category, divided among occupants.
var basePrice = map[Category]decimal.Decimal{
	CategoryStandard: decimal.NewFromInt(40000),
	CategoryLuxury:   decimal.NewFromInt(60000),
}

// ParseCategory maps free text to a Category, failing closed on
// anything but the two known tiers.
func ParseCategory(text string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "standard":
		return CategoryStandard, nil
	case "luxury":
		return CategoryLuxury, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, text)
}

// ParseSharing normalizes free-text sharing arrangements and maps them
// to an occupant count of 1, 2 or 4. Accepted forms after stripping
// hyphens, trimming and case-folding: "1 sharing", "1sharing",
// "no sharing" and the 2/4 equivalents. Anything else fails closed.
func ParseSharing(text string) (Sharing, error) {
	normalized := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(text, "-", " ")))
	normalized = strings.Join(strings.Fields(normalized), " ")

	switch normalized {
	case "1 sharing", "1sharing", "no sharing":
		return SharingSingle, nil
	case "2 sharing", "2sharing":
		return SharingDouble, nil
	case "4 sharing", "4sharing":
		return SharingQuad, nil
	}
	return 0, &InvalidSharingError{Text: text}
}

// Fee returns the per-occupant price for a category and sharing
// arrangement: the category's fixed room cost divided by the occupant
// count. The result is unrounded.
func Fee(category Category, sharing Sharing) (decimal.Decimal, error) {
	base, ok := basePrice[category]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	switch sharing {
	case SharingSingle, SharingDouble, SharingQuad:
	default:
		return decimal.Zero, &InvalidSharingError{Text: sharing.String()}
	}
	return base.Div(decimal.NewFromInt(int64(sharing.Occupants()))), nil
}

// QuoteFee is the string-in boundary used by registration and pricing
// callers: parse both inputs, then compute the fee.
func QuoteFee(categoryText, sharingText string) (decimal.Decimal, error) {
	category, err := ParseCategory(categoryText)
	if err != nil {
		return decimal.Zero, err
	}
	sharing, err := ParseSharing(sharingText)
	if err != nil {
		return decimal.Zero, err
	}
	return Fee(category, sharing)
}

// roundMoney applies the two-decimal ledger rounding. Call only at the
// point of ledger insertion.
func roundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
