package hostel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iharshcr7/hostel-engine/hostel"
)

// =============================================================================
// FEE CALCULATION TESTS
// =============================================================================

func TestFee_PerOccupantDivision(t *testing.T) {
	// GIVEN: Fixed room cost per category (Standard 40000, Luxury 60000)
	// WHEN: Computing the per-occupant fee for each sharing level
	// THEN: The fee is the room cost divided by the occupant count

	cases := []struct {
		category hostel.Category
		sharing  hostel.Sharing
		want     string
	}{
		{hostel.CategoryStandard, hostel.SharingSingle, "40000"},
		{hostel.CategoryStandard, hostel.SharingDouble, "20000"},
		{hostel.CategoryStandard, hostel.SharingQuad, "10000"},
		{hostel.CategoryLuxury, hostel.SharingSingle, "60000"},
		{hostel.CategoryLuxury, hostel.SharingDouble, "30000"},
		{hostel.CategoryLuxury, hostel.SharingQuad, "15000"},
	}
	for _, tc := range cases {
		fee, err := hostel.Fee(tc.category, tc.sharing)
		require.NoError(t, err, "%s %s", tc.category, tc.sharing)
		assert.True(t, fee.Equal(dec(tc.want)),
			"%s %s: want %s, got %s", tc.category, tc.sharing, tc.want, fee)
	}
}

func TestFee_UnknownCategory_Rejected(t *testing.T) {
	// GIVEN: A category outside the closed set
	// WHEN: Computing a fee
	// THEN: The calculator fails closed instead of defaulting a price

	_, err := hostel.Fee(hostel.Category("Deluxe"), hostel.SharingDouble)
	assert.ErrorIs(t, err, hostel.ErrInvalidCategory)
}

func TestFee_UnknownSharing_Rejected(t *testing.T) {
	_, err := hostel.Fee(hostel.CategoryStandard, hostel.Sharing(3))
	assert.ErrorIs(t, err, hostel.ErrInvalidSharing)
}

// =============================================================================
// SHARING TEXT NORMALIZATION TESTS
// =============================================================================

func TestParseSharing_AcceptedSpellings(t *testing.T) {
	// GIVEN: The sharing spellings seen at the input boundary
	// WHEN: Parsing them
	// THEN: Hyphens, case and spacing differences all normalize to the
	//       same occupant count

	cases := []struct {
		text string
		want hostel.Sharing
	}{
		{"1 Sharing", hostel.SharingSingle},
		{"1-Sharing", hostel.SharingSingle},
		{"1sharing", hostel.SharingSingle},
		{"No Sharing", hostel.SharingSingle},
		{"no-sharing", hostel.SharingSingle},
		{"2 Sharing", hostel.SharingDouble},
		{"2-SHARING", hostel.SharingDouble},
		{"2sharing", hostel.SharingDouble},
		{"4 Sharing", hostel.SharingQuad},
		{"  4-sharing  ", hostel.SharingQuad},
		{"4Sharing", hostel.SharingQuad},
	}
	for _, tc := range cases {
		got, err := hostel.ParseSharing(tc.text)
		require.NoError(t, err, "%q", tc.text)
		assert.Equal(t, tc.want, got, "%q", tc.text)
	}
}

func TestParseSharing_UnknownText_Rejected(t *testing.T) {
	for _, text := range []string{"", "3 Sharing", "triple", "sharing"} {
		_, err := hostel.ParseSharing(text)
		assert.ErrorIs(t, err, hostel.ErrInvalidSharing, "%q", text)

		var sharingErr *hostel.InvalidSharingError
		assert.ErrorAs(t, err, &sharingErr, "%q should carry the raw text", text)
	}
}

func TestParseCategory_CaseInsensitive(t *testing.T) {
	for _, text := range []string{"Standard", "standard", "STANDARD", " standard "} {
		got, err := hostel.ParseCategory(text)
		require.NoError(t, err, "%q", text)
		assert.Equal(t, hostel.CategoryStandard, got)
	}

	got, err := hostel.ParseCategory("luxury")
	require.NoError(t, err)
	assert.Equal(t, hostel.CategoryLuxury, got)
}

func TestParseCategory_UnknownText_Rejected(t *testing.T) {
	for _, text := range []string{"", "Premium", "std"} {
		_, err := hostel.ParseCategory(text)
		assert.ErrorIs(t, err, hostel.ErrInvalidCategory, "%q", text)
	}
}

// =============================================================================
// QUOTE TESTS
// =============================================================================

func TestQuoteFee_ParsesThenPrices(t *testing.T) {
	// GIVEN: Free-text category and sharing from a request
	// WHEN: Quoting the fee
	// THEN: Both are parsed at the boundary and priced together

	fee, err := hostel.QuoteFee("luxury", "4-sharing")
	require.NoError(t, err)
	assert.True(t, fee.Equal(dec("15000")), "got %s", fee)

	_, err = hostel.QuoteFee("luxury", "5-sharing")
	assert.ErrorIs(t, err, hostel.ErrInvalidSharing)

	_, err = hostel.QuoteFee("economy", "2 sharing")
	assert.ErrorIs(t, err, hostel.ErrInvalidCategory)
}
