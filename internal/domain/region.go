package domain

import "fmt"

type Region string

const (
	RegionMainDining   Region = "main_dining"
	RegionBarArea      Region = "bar_area"
	RegionOutdoorPatio Region = "outdoor_patio"
	RegionPrivateRoom  Region = "private_room"
)

var regionNames = map[Region]string{
	RegionMainDining:   "Main Dining Room",
	RegionBarArea:      "Bar Area",
	RegionOutdoorPatio: "Outdoor Patio",
	RegionPrivateRoom:  "Private Room",
}

func AllRegions() []Region {
	return []Region{RegionMainDining, RegionBarArea, RegionOutdoorPatio, RegionPrivateRoom}
}

func ParseRegion(s string) (Region, error) {
	r := Region(s)
	if _, ok := regionNames[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegion, s)
	}
	return r, nil
}

func (r Region) Valid() bool {
	_, ok := regionNames[r]
	return ok
}

func (r Region) DisplayName() string {
	if name, ok := regionNames[r]; ok {
		return name
	}
	return string(r)
}
