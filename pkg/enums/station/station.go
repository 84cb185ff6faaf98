package station

import (
	"fmt"

	"github.com/appetiteclub/orderboard/pkg/enums"
)

// Station is the preparation point (postazione) responsible for an item.
type Station struct {
	Name string
}

func (s Station) Code() string {
	return s.Name
}

func (s Station) Label() string {
	return enums.Label(s.Name)
}

func (s Station) MarshalText() ([]byte, error) {
	return []byte(s.Name), nil
}

func (s *Station) UnmarshalText(text []byte) error {
	found := ByName(string(text))
	if found == nil {
		return fmt.Errorf("unknown station %q", string(text))
	}
	*s = *found
	return nil
}

type Enum struct {
	Kitchen Station
	Bar     Station
	Other   Station
}

var Stations = Enum{
	Kitchen: Station{Name: "CUCINA"},
	Bar:     Station{Name: "BAR"},
	Other:   Station{Name: "ALTRO"},
}

var All = []Station{
	Stations.Kitchen,
	Stations.Bar,
	Stations.Other,
}

// ByName returns the station for a given name, or nil if not found
func ByName(name string) *Station {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
