package service

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/simhastha_samwad/backend/internal/utils"
)

type Facility struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	DistanceM int    `json:"distance_m"`
	Location  string `json:"location"`
}

type ScheduleItem struct {
	Time  string `json:"time"`
	Event string `json:"event"`
	Venue string `json:"venue"`
}

// Landmark is a named zone with a reference point used to place location
// shares.
type Landmark struct {
	Zone      string
	Latitude  float64
	Longitude float64
}

var sanitationFacilities = map[string][]Facility{
	"Zone 4": {
		{Name: "Toilet Block T4-A", Type: "toilet", DistanceM: 120, Location: "Gate 5, east side"},
		{Name: "Drinking Water W4-2", Type: "water", DistanceM: 200, Location: "Near info kiosk"},
		{Name: "Cleaning Crew C4", Type: "cleaning", DistanceM: 350, Location: "Behind food stalls"},
	},
	"Sector 9": {
		{Name: "First Aid SA-9", Type: "first_aid", DistanceM: 180, Location: "Opp. food court"},
		{Name: "Toilet Block T9-B", Type: "toilet", DistanceM: 240, Location: "Lane 3"},
	},
}

var festivalSchedule = []ScheduleItem{
	{Time: "06:00", Event: "Morning Aarti", Venue: "Main Ghat"},
	{Time: "10:30", Event: "Cultural Procession", Venue: "Gate 2 → Plaza"},
	{Time: "16:00", Event: "Discourse", Venue: "Hall B"},
	{Time: "19:00", Event: "Evening Aarti", Venue: "Main Ghat"},
}

// Landmarks around the Ujjain ghats.
var Landmarks = []Landmark{
	{Zone: "Main Ghat", Latitude: 23.1828, Longitude: 75.7681},
	{Zone: "Gate 2", Latitude: 23.1851, Longitude: 75.7662},
	{Zone: "Gate 5", Latitude: 23.1797, Longitude: 75.7724},
	{Zone: "Zone 4", Latitude: 23.1772, Longitude: 75.7698},
	{Zone: "Sector 9", Latitude: 23.1889, Longitude: 75.7745},
	{Zone: "Ghat 3", Latitude: 23.1809, Longitude: 75.7650},
}

// MaxLandmarkKm bounds how far a share may be from a landmark to be placed
// in its zone.
const MaxLandmarkKm = 2.0

func SanitationFacilities(zone string) []Facility {
	f := sanitationFacilities[zone]
	if f == nil {
		return []Facility{}
	}
	return f
}

func FestivalSchedule() []ScheduleItem {
	out := make([]ScheduleItem, len(festivalSchedule))
	copy(out, festivalSchedule)
	return out
}

// RouteSteps returns canned walking steps. Without an origin the pilgrim is
// sent to an info kiosk.
func RouteSteps(origin, dest string) []string {
	if dest == "" {
		dest = "Main Ghat"
	}
	if origin == "" {
		return []string{"Head to the nearest info kiosk", "Ask for directions to " + dest}
	}
	return []string{
		"Start at " + origin,
		"Walk 200m to the main corridor",
		"Follow signs towards the plaza",
		"Proceed to " + dest,
	}
}

// NearestZone returns the closest landmark zone within MaxLandmarkKm.
func NearestZone(lat, lng float64) (string, bool) {
	best, bestKm := "", math.MaxFloat64
	for _, l := range Landmarks {
		if d := utils.DistanceKm(utils.Point{Lat: lat, Lng: lng}, utils.Point{Lat: l.Latitude, Lng: l.Longitude}); d < bestKm {
			best, bestKm = l.Zone, d
		}
	}
	if best == "" || bestKm > MaxLandmarkKm {
		return "", false
	}
	return best, true
}

// MapsLink builds a walking directions link from a coordinate to a named
// destination.
func MapsLink(lat, lng float64, dest string) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&origin=%s,%s&destination=%s",
		formatCoord(lat), formatCoord(lng), url.QueryEscape(dest))
}

func formatCoord(v float64) string {
	s := fmt.Sprintf("%.6f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
