// Package world holds the static geography the lucidity subsystem drifts
// against: rooms keyed by plane/region/sub-region, location types with
// day/night flux defaults, and the in-world clock.
package world

import "fmt"

// LocationType classifies a room for flux purposes.
type LocationType uint8

const (
	TypeSanctum    LocationType = iota // consecrated ground, restorative
	TypeSettlement                     // inhabited, mildly restorative
	TypeWilds                          // open country, slow erosion
	TypeDepths                         // beneath the surface, steady erosion
	TypeVoid                           // outside the planes, rapid erosion
)

var typeNames = [...]string{"sanctum", "settlement", "wilds", "depths", "void"}

func (t LocationType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// baseFlux holds the day/night default rates per location type, applied
// when no override is configured anywhere above the room.
var baseFlux = map[LocationType][2]float64{
	TypeSanctum:    {0.5, 0.3},
	TypeSettlement: {0.2, 0.1},
	TypeWilds:      {-0.1, -0.3},
	TypeDepths:     {-0.5, -0.8},
	TypeVoid:       {-1.5, -2.0},
}

// BaseFlux returns the location-type default rate for day or night.
func BaseFlux(t LocationType, night bool) float64 {
	rates, ok := baseFlux[t]
	if !ok {
		return 0
	}
	if night {
		return rates[1]
	}
	return rates[0]
}

// Room is one location in the world.
type Room struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Plane     string       `json:"plane"`
	Region    string       `json:"region"`
	Subregion string       `json:"subregion"`
	Type      LocationType `json:"type"`

	// FluxOverride pins an exact per-room rate, beating every level of
	// the hierarchy except external world overrides.
	FluxOverride *float64 `json:"flux_override,omitempty"`
}

// Key returns the room's plane:region:subregion path.
func (r Room) Key() string {
	return fmt.Sprintf("%s:%s:%s", r.Plane, r.Region, r.Subregion)
}

// Atlas is the room index plus region-level flux overrides. Built once at
// startup and read-only afterwards, so no locking.
type Atlas struct {
	rooms map[string]Room

	// Region-level overrides keyed "plane:region" and
	// "plane:region:subregion".
	regionFlux    map[string]float64
	subregionFlux map[string]float64
}

// NewAtlas builds an empty atlas.
func NewAtlas() *Atlas {
	return &Atlas{
		rooms:         make(map[string]Room),
		regionFlux:    make(map[string]float64),
		subregionFlux: make(map[string]float64),
	}
}

// AddRoom indexes a room.
func (a *Atlas) AddRoom(r Room) {
	a.rooms[r.ID] = r
}

// Room looks a room up by id.
func (a *Atlas) Room(id string) (Room, bool) {
	r, ok := a.rooms[id]
	return r, ok
}

// RoomCount returns the number of indexed rooms.
func (a *Atlas) RoomCount() int {
	return len(a.rooms)
}

// SetRegionFlux pins a rate for every room in plane:region lacking a more
// specific override.
func (a *Atlas) SetRegionFlux(plane, region string, rate float64) {
	a.regionFlux[plane+":"+region] = rate
}

// SetSubregionFlux pins a rate for plane:region:subregion.
func (a *Atlas) SetSubregionFlux(plane, region, subregion string, rate float64) {
	a.subregionFlux[plane+":"+region+":"+subregion] = rate
}

// RegionFlux returns the plane:region override, if any.
func (a *Atlas) RegionFlux(plane, region string) (float64, bool) {
	rate, ok := a.regionFlux[plane+":"+region]
	return rate, ok
}

// SubregionFlux returns the plane:region:subregion override, if any.
func (a *Atlas) SubregionFlux(plane, region, subregion string) (float64, bool) {
	rate, ok := a.subregionFlux[plane+":"+region+":"+subregion]
	return rate, ok
}
