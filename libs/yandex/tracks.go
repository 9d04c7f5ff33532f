package yandex

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Header = `<?xml version="1.0" encoding="utf-8"?>`

	// TimeFormat is DDMMYYYY:HHMMSS, as the collector expects it
	TimeFormat = "02012006:150405"

	CategoryScheduled  = "s"
	DefaultVehicleType = "trolleybus"
)

type Point struct {
	XMLName   xml.Name `xml:"point"`
	Latitude  string   `xml:"latitude,attr"`
	Longitude string   `xml:"longitude,attr"`
	AvgSpeed  string   `xml:"avg_speed,attr"`
	Direction int      `xml:"direction,attr"`
	Time      string   `xml:"time,attr"`
}

type Track struct {
	XMLName     xml.Name `xml:"track"`
	UUID        string   `xml:"uuid,attr"`
	Category    string   `xml:"category,attr"`
	Route       string   `xml:"route,attr"`
	VehicleType string   `xml:"vehicle_type,attr"`
	Point       Point    `xml:"point"`
}

type Tracks struct {
	XMLName  xml.Name `xml:"tracks"`
	ClientID string   `xml:"clid,attr"`
	Tracks   []Track  `xml:"track"`
}

func NewPoint(latitude, longitude, speed float64, direction int, at time.Time) Point {
	return Point{
		Latitude:  FormatCoordinate(latitude),
		Longitude: FormatCoordinate(longitude),
		AvgSpeed:  strconv.FormatFloat(speed, 'f', -1, 64),
		Direction: direction,
		Time:      at.UTC().Format(TimeFormat),
	}
}

func NewTrack(uuid, route, vehicleType string, point Point) Track {
	if vehicleType == "" {
		vehicleType = DefaultVehicleType
	}
	return Track{
		UUID:        uuid,
		Category:    CategoryScheduled,
		Route:       route,
		VehicleType: vehicleType,
		Point:       point,
	}
}

// FormatCoordinate renders the shortest exact decimal form of a coordinate, padded
// to at least two fractional digits (26.1 -> "26.10").
func FormatCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s + ".00"
	}
	if digits := len(s) - dot - 1; digits < 2 {
		s += strings.Repeat("0", 2-digits)
	}
	return s
}

// Encode writes the document with self-closing point elements, the shape the
// collector documents.
func (t *Tracks) Encode() ([]byte, error) {
	if t.ClientID == "" {
		return nil, fmt.Errorf("client id is empty")
	}

	var buf bytes.Buffer
	buf.WriteString(Header)
	buf.WriteString("<tracks")
	writeAttr(&buf, "clid", t.ClientID)
	buf.WriteByte('>')
	for _, tr := range t.Tracks {
		buf.WriteString("<track")
		writeAttr(&buf, "uuid", tr.UUID)
		writeAttr(&buf, "category", tr.Category)
		writeAttr(&buf, "route", tr.Route)
		writeAttr(&buf, "vehicle_type", tr.VehicleType)
		buf.WriteString("><point")
		writeAttr(&buf, "latitude", tr.Point.Latitude)
		writeAttr(&buf, "longitude", tr.Point.Longitude)
		writeAttr(&buf, "avg_speed", tr.Point.AvgSpeed)
		writeAttr(&buf, "direction", strconv.Itoa(tr.Point.Direction))
		writeAttr(&buf, "time", tr.Point.Time)
		buf.WriteString("/></track>")
	}
	buf.WriteString("</tracks>")
	return buf.Bytes(), nil
}

func (t *Tracks) Decode(content []byte) error {
	if err := xml.Unmarshal(content, t); err != nil {
		return fmt.Errorf("could not decode tracks: %v", err)
	}
	return nil
}

func writeAttr(buf *bytes.Buffer, name, value string) {
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteString(`="`)
	// writes to a bytes.Buffer do not fail
	_ = xml.EscapeText(buf, []byte(value))
	buf.WriteByte('"')
}
