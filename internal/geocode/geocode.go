package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/simhastha_samwad/backend/internal/utils"
)

var ErrNotFound = errors.New("geocode not found")

// Place is a resolved landmark: where it is and what the provider calls it.
type Place struct {
	utils.Point
	Name      string
	Relevance float64
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) (Place, error)
}

// PinQuery builds a lookup string for a location pin. The landmark name is
// dropped when the street text already contains it, and the city goes last.
func PinQuery(city, landmark, address string) string {
	city = strings.TrimSpace(city)
	landmark = strings.TrimSpace(landmark)
	address = strings.TrimSpace(address)
	if landmark != "" && strings.Contains(strings.ToLower(address), strings.ToLower(landmark)) {
		landmark = ""
	}
	var parts []string
	for _, p := range []string{address, landmark} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if city != "" && !strings.Contains(strings.ToLower(strings.Join(parts, " ")), strings.ToLower(city)) {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}
