package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/roataway/briya/cli/bridge/types"
)

// UpstreamTimeFormat is the timestamp layout used by the telemetry feed.
const UpstreamTimeFormat = "2006-01-02T15:04:05Z"

var now = time.Now

type Reason string

const (
	ReasonMalformedPayload Reason = "malformed_payload"
	ReasonSchemaViolation  Reason = "schema_violation"
	ReasonFutureTimestamp  Reason = "future_timestamp"
)

// Rejection is returned by Validate for messages that must be dropped.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string {
	return string(r.Reason) + ": " + r.Detail
}

const telemetrySchema = `{
  "type": "object",
  "required": ["rtu_id", "latitude", "longitude", "direction", "board", "speed", "route", "timestamp"],
  "properties": {
    "rtu_id":    {"type": "string"},
    "latitude":  {"type": "number"},
    "longitude": {"type": "number"},
    "direction": {"type": "number"},
    "board":     {"type": "string"},
    "speed":     {"type": "number"},
    "route":     {"type": "string"},
    "timestamp": {"type": "string"}
  }
}`

type telemetryMessage struct {
	RtuID     string  `json:"rtu_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Direction float64 `json:"direction"`
	Board     string  `json:"board"`
	Speed     float64 `json:"speed"`
	Route     string  `json:"route"`
	Timestamp string  `json:"timestamp"`
}

type Validator struct {
	schema         *gojsonschema.Schema
	driftTolerance time.Duration
}

func NewValidator(driftTolerance time.Duration) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(telemetrySchema))
	if err != nil {
		return nil, fmt.Errorf("invalid telemetry schema: %w", err)
	}
	return &Validator{schema: schema, driftTolerance: driftTolerance}, nil
}

// Validate parses raw and checks it. Dropped messages yield a *Rejection.
func (v *Validator) Validate(raw []byte) (types.Telemetry, error) {
	var msg telemetryMessage
	if !json.Valid(raw) {
		return types.Telemetry{}, &Rejection{Reason: ReasonMalformedPayload, Detail: "not valid JSON"}
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return types.Telemetry{}, &Rejection{Reason: ReasonMalformedPayload, Detail: err.Error()}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return types.Telemetry{}, &Rejection{Reason: ReasonSchemaViolation, Detail: strings.Join(details, "; ")}
	}

	if err = json.Unmarshal(raw, &msg); err != nil {
		return types.Telemetry{}, &Rejection{Reason: ReasonMalformedPayload, Detail: err.Error()}
	}

	ts, err := time.Parse(UpstreamTimeFormat, msg.Timestamp)
	if err != nil {
		return types.Telemetry{}, &Rejection{Reason: ReasonMalformedPayload, Detail: "bad timestamp " + msg.Timestamp}
	}

	if limit := now().Add(v.driftTolerance); ts.After(limit) {
		return types.Telemetry{}, &Rejection{
			Reason: ReasonFutureTimestamp,
			Detail: fmt.Sprintf("%s is ahead of %s", ts.Format(time.RFC3339), limit.UTC().Format(time.RFC3339)),
		}
	}

	return types.Telemetry{
		TrackerID: msg.RtuID,
		Latitude:  msg.Latitude,
		Longitude: msg.Longitude,
		Direction: int(msg.Direction),
		Board:     msg.Board,
		Speed:     msg.Speed,
		Route:     msg.Route,
		Timestamp: ts,
	}, nil
}
