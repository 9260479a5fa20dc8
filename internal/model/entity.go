package model

import "strings"

// EntityType classifies a location-like mention.
type EntityType string

const (
	TypePlace    EntityType = "place"    // GPE: cities, states, countries
	TypeLocation EntityType = "location" // LOC: natural features, regions
	TypeFacility EntityType = "facility" // FAC: buildings, airports, bridges
)

// TypeFromLabel maps a model label (optionally BIO-prefixed, e.g. "B-GPE")
// to an EntityType. ok is false for labels outside GPE/LOC/FAC.
func TypeFromLabel(label string) (EntityType, bool) {
	l := strings.ToUpper(label)
	if i := strings.LastIndex(l, "-"); i >= 0 {
		l = l[i+1:]
	}
	switch l {
	case "GPE":
		return TypePlace, true
	case "LOC":
		return TypeLocation, true
	case "FAC":
		return TypeFacility, true
	default:
		return "", false
	}
}

// Label returns the model-side label for an EntityType.
func (t EntityType) Label() string {
	switch t {
	case TypePlace:
		return "GPE"
	case TypeLocation:
		return "LOC"
	case TypeFacility:
		return "FAC"
	default:
		return ""
	}
}

// Entity is a text span extracted from a cleaned record. Start and End are
// rune offsets into the clean text.
type Entity struct {
	RecordID   string     `json:"id"`
	RecordTime string     `json:"time"`
	Text       string     `json:"entity"`
	Type       EntityType `json:"type"`
	Score      float64    `json:"score"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
}

// GeocodedEntity is an Entity plus resolved coordinates, or a failure marker
// when the geocoder exhausted its retries or got no match. Country, Region,
// and County are filled by boundary attribution when layers are supplied.
type GeocodedEntity struct {
	Entity
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Matched    bool    `json:"matched"`
	FailReason string  `json:"fail_reason,omitempty"`
	Country    string  `json:"country,omitempty"`
	Region     string  `json:"region,omitempty"`
	County     string  `json:"county,omitempty"`
}

// ValidCoordinates reports whether lat/lon fall in the WGS84 value domain.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
