package types

import (
	"encoding/json"
	"time"

	"gopkg.in/vmihailenco/msgpack.v2"
)

const DefaultCategory = "trolleybus"

// Telemetry is one accepted inbound message
type Telemetry struct {
	TrackerID string
	Latitude  float64
	Longitude float64
	// North=0, East=90, South=180, West=270
	Direction int
	// the number painted on the vehicle, usually numeric but not always
	Board     string
	Speed     float64
	Route     string
	Timestamp time.Time
}

// VehicleRecord is the latest known state of one vehicle. ExternalID is assigned
// when the record is created and never changes afterwards.
type VehicleRecord struct {
	TrackerID  string    `json:"tracker_id" msgpack:"tracker_id"`
	ExternalID string    `json:"external_id" msgpack:"external_id"`
	Latitude   float64   `json:"latitude" msgpack:"latitude"`
	Longitude  float64   `json:"longitude" msgpack:"longitude"`
	Direction  int       `json:"direction" msgpack:"direction"`
	Speed      float64   `json:"speed" msgpack:"speed"`
	Board      string    `json:"board" msgpack:"board"`
	Route      string    `json:"route" msgpack:"route"`
	Category   string    `json:"category" msgpack:"category"`
	Timestamp  time.Time `json:"timestamp" msgpack:"-"`
	UnixTime   int64     `json:"-" msgpack:"timestamp"`
}

func NewVehicleRecord(t Telemetry, externalID, category string) VehicleRecord {
	if category == "" {
		category = DefaultCategory
	}
	r := VehicleRecord{
		TrackerID:  t.TrackerID,
		ExternalID: externalID,
		Category:   category,
	}
	r.Apply(t)
	return r
}

// Apply overwrites every mutable field with the values of t.
func (r *VehicleRecord) Apply(t Telemetry) {
	r.Latitude = t.Latitude
	r.Longitude = t.Longitude
	r.Direction = t.Direction
	r.Speed = t.Speed
	r.Board = t.Board
	r.Route = t.Route
	r.Timestamp = t.Timestamp.UTC()
}

func (r *VehicleRecord) ToBytes() ([]byte, error) {
	return json.Marshal(r)
}

func (r *VehicleRecord) ToMsgpack() ([]byte, error) {
	m := *r
	m.UnixTime = r.Timestamp.Unix()
	return msgpack.Marshal(&m)
}
