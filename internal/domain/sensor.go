package domain

// SensorType is the hardware family of a road sensor.
type SensorType string

const (
	SensorLHT   SensorType = "LHT"
	SensorWS100 SensorType = "WS100"
)

// Kind returns the source table the sensor feeds.
func (t SensorType) Kind() SourceKind {
	if t == SensorWS100 {
		return SourceWS100
	}
	return SourceLHT
}

// Sensor describes one road weather sensor.
type Sensor struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type SensorType `json:"type"`
	Lat  float64    `json:"lat"`
	Lon  float64    `json:"lon"`
}
