package service

import (
	"sort"
	"strings"

	"github.com/couchcryptid/road-weather-service/internal/domain"
)

// DefaultSensors is the Jyväskylä road sensor network.
func DefaultSensors() []domain.Sensor {
	return []domain.Sensor{
		{ID: "Kaunisharjuntie", Name: "Kaunisharjuntie", Type: domain.SensorLHT, Lat: 62.2400, Lon: 25.7500},
		{ID: "Saaritie", Name: "Saaritie", Type: domain.SensorWS100, Lat: 62.136788, Lon: 25.762473},
		{ID: "Tuulimyllyntie", Name: "Tuulimyllyntie", Type: domain.SensorWS100, Lat: 62.221789, Lon: 25.695931},
		{ID: "Tahtiniementie", Name: "Tähtiniementie", Type: domain.SensorWS100, Lat: 62.011127, Lon: 25.552755},
		{ID: "Kaakkovuorentie", Name: "Kaakkovuorentie", Type: domain.SensorWS100, Lat: 62.294362, Lon: 25.800196},
		{ID: "Kotaniementie", Name: "Kotaniementie", Type: domain.SensorWS100, Lat: 62.265705, Lon: 25.909542},
	}
}

// Catalog looks sensors up by id. Lookups ignore case.
type Catalog struct {
	byID map[string]domain.Sensor
}

// NewCatalog indexes the given sensors.
func NewCatalog(sensors []domain.Sensor) *Catalog {
	c := &Catalog{byID: make(map[string]domain.Sensor, len(sensors))}
	for _, s := range sensors {
		c.byID[strings.ToLower(s.ID)] = s
	}
	return c
}

// Lookup returns the sensor with id and the given type.
func (c *Catalog) Lookup(id string, typ domain.SensorType) (domain.Sensor, bool) {
	s, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok || s.Type != typ {
		return domain.Sensor{}, false
	}
	return s, true
}

// List returns all sensors, LHT first, then by id.
func (c *Catalog) List() []domain.Sensor {
	out := make([]domain.Sensor, 0, len(c.byID))
	for _, s := range c.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == domain.SensorLHT
		}
		return out[i].ID < out[j].ID
	})
	return out
}
