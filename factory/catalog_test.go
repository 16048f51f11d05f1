package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iharshcr7/hostel-engine/factory"
	"github.com/iharshcr7/hostel-engine/hostel"
)

func TestParseCatalog_DerivesCapacityFromSharing(t *testing.T) {
	// GIVEN: A catalog with mixed spellings and a capacity-free schema
	// WHEN: Parsing
	// THEN: Capacity comes from the sharing arrangement, not the file

	rooms, err := factory.ParseCatalog([]byte(`{
		"rooms": [
			{"room_no": "101", "category": "standard", "sharing": "4-Sharing", "block": "A Block", "floor": 1},
			{"room_no": "201", "category": "Luxury", "sharing": "no sharing", "block": "B Block", "floor": 2}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	assert.Equal(t, hostel.CategoryStandard, rooms[0].Type)
	assert.Equal(t, hostel.SharingQuad, rooms[0].Sharing)
	assert.Equal(t, 4, rooms[0].Capacity)
	assert.Equal(t, 0, rooms[0].CurrentOccupancy)

	assert.Equal(t, hostel.CategoryLuxury, rooms[1].Type)
	assert.Equal(t, hostel.SharingSingle, rooms[1].Sharing)
	assert.Equal(t, 1, rooms[1].Capacity)
}

func TestParseCatalog_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"malformed JSON", `{"rooms": [`},
		{"empty catalog", `{"rooms": []}`},
		{"missing room_no", `{"rooms": [{"category": "Standard", "sharing": "2 Sharing"}]}`},
		{"duplicate room", `{"rooms": [
			{"room_no": "101", "category": "Standard", "sharing": "2 Sharing"},
			{"room_no": "101", "category": "Standard", "sharing": "2 Sharing"}
		]}`},
		{"unknown category", `{"rooms": [{"room_no": "101", "category": "Deluxe", "sharing": "2 Sharing"}]}`},
		{"unknown sharing", `{"rooms": [{"room_no": "101", "category": "Standard", "sharing": "3 Sharing"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := factory.ParseCatalog([]byte(tc.json))
			assert.Error(t, err)
		})
	}
}

func TestDefaultCatalog_CoversEveryTierAndSharing(t *testing.T) {
	rooms := factory.DefaultCatalog()
	require.Len(t, rooms, 6)

	type combo struct {
		category hostel.Category
		sharing  hostel.Sharing
	}
	seen := make(map[combo]bool)
	for _, r := range rooms {
		seen[combo{r.Type, r.Sharing}] = true
		assert.Equal(t, r.Sharing.Occupants(), r.Capacity, "room %s", r.RoomNo)
	}
	assert.Len(t, seen, 6, "each category/sharing pair appears once")
}
