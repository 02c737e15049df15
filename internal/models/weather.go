package models

import (
	"strconv"
	"time"
)

// Position is a one-shot device position in decimal degrees.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Conditions is the subset of an upstream weather response the screen displays.
type Conditions struct {
	Temperature float64 `json:"temperature"`
	Weather     string  `json:"weather"`
}

// Snapshot is the in-memory record of the most recently fetched (or pending)
// weather data. Temperature and Weather stay nil until a fetch succeeds.
type Snapshot struct {
	Temperature *float64  `json:"temperature,omitempty"`
	Weather     *string   `json:"weather,omitempty"`
	Refreshing  bool      `json:"refreshing"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SnapshotFromConditions builds a completed snapshot holding both display fields.
func SnapshotFromConditions(c Conditions) Snapshot {
	temp := c.Temperature
	weather := c.Weather
	return Snapshot{
		Temperature: &temp,
		Weather:     &weather,
	}
}

// Valid reports whether the snapshot carries both display fields.
func (s Snapshot) Valid() bool {
	return s.Temperature != nil && s.Weather != nil
}

// TemperatureText formats the temperature as "<value>°C" using the shortest
// decimal form (21.5 -> "21.5°C", 21 -> "21°C"). Empty when absent.
func (s Snapshot) TemperatureText() string {
	if s.Temperature == nil {
		return ""
	}
	return strconv.FormatFloat(*s.Temperature, 'f', -1, 64) + "°C"
}
