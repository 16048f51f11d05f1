/*
Package factory provides JSON to Go room-catalog conversion.

PURPOSE:
  Converts JSON catalog definitions into hostel.Room rows. This enables
  the room inventory to be configured without code changes - an admin
  can define blocks, floors and sharing arrangements in JSON and seed
  the database from it.

JSON SCHEMA:
  {
    "rooms": [
      {"room_no": "101", "category": "Standard", "sharing": "4 Sharing",
       "block": "A Block", "floor": 1}
    ]
  }

VALIDATION:
  Category and sharing text pass through the same boundary parsers the
  engine uses, so a catalog cannot introduce values the fee calculator
  would reject. Capacity is always derived from the sharing arrangement,
  never taken from the file.

USAGE:
  rooms, err := factory.ParseCatalog(data)
  for i := range rooms {
      store.CreateRoom(ctx, &rooms[i])
  }

SEE ALSO:
  - hostel/fee.go: The boundary parsers
  - api/handlers.go: The admin seed endpoint
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/iharshcr7/hostel-engine/hostel"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RoomJSON is the JSON representation of one room.
type RoomJSON struct {
	RoomNo   string `json:"room_no"`
	Category string `json:"category"`
	Sharing  string `json:"sharing"`
	Block    string `json:"block,omitempty"`
	Floor    int    `json:"floor,omitempty"`
}

// CatalogJSON is the JSON representation of a room catalog.
type CatalogJSON struct {
	Rooms []RoomJSON `json:"rooms"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseCatalog converts catalog JSON into room rows with capacity
// derived from the sharing arrangement.
func ParseCatalog(data []byte) ([]hostel.Room, error) {
	var catalog CatalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON: %w", err)
	}
	if len(catalog.Rooms) == 0 {
		return nil, fmt.Errorf("catalog has no rooms")
	}

	seen := make(map[string]bool, len(catalog.Rooms))
	rooms := make([]hostel.Room, 0, len(catalog.Rooms))
	for _, rj := range catalog.Rooms {
		if rj.RoomNo == "" {
			return nil, fmt.Errorf("catalog room with empty room_no")
		}
		if seen[rj.RoomNo] {
			return nil, fmt.Errorf("duplicate room %s in catalog", rj.RoomNo)
		}
		seen[rj.RoomNo] = true

		category, err := hostel.ParseCategory(rj.Category)
		if err != nil {
			return nil, fmt.Errorf("room %s: %w", rj.RoomNo, err)
		}
		sharing, err := hostel.ParseSharing(rj.Sharing)
		if err != nil {
			return nil, fmt.Errorf("room %s: %w", rj.RoomNo, err)
		}

		rooms = append(rooms, hostel.Room{
			RoomNo:    rj.RoomNo,
			Type:      category,
			Sharing:   sharing,
			Capacity:  sharing.Occupants(),
			BlockName: rj.Block,
			FloorNo:   rj.Floor,
		})
	}
	return rooms, nil
}

// DefaultCatalog returns the standard six-room demo inventory: one
// room per category and sharing arrangement across two blocks.
func DefaultCatalog() []hostel.Room {
	rooms, err := ParseCatalog([]byte(defaultCatalogJSON))
	if err != nil {
		panic(err) // the embedded catalog is fixed at compile time
	}
	return rooms
}

const defaultCatalogJSON = `{
  "rooms": [
    {"room_no": "101", "category": "Standard", "sharing": "4 Sharing", "block": "A Block", "floor": 1},
    {"room_no": "102", "category": "Standard", "sharing": "2 Sharing", "block": "A Block", "floor": 1},
    {"room_no": "103", "category": "Standard", "sharing": "1 Sharing", "block": "A Block", "floor": 1},
    {"room_no": "201", "category": "Luxury", "sharing": "4 Sharing", "block": "B Block", "floor": 2},
    {"room_no": "202", "category": "Luxury", "sharing": "2 Sharing", "block": "B Block", "floor": 2},
    {"room_no": "203", "category": "Luxury", "sharing": "1 Sharing", "block": "B Block", "floor": 2}
  ]
}`
