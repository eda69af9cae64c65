package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// APIVersion tags the source schema consumed by Normalize.
const APIVersion = "v3"

const (
	unknownRocket  = "Unknown"
	unknownMission = "Unknown Mission"
)

// RawLaunch is one launch object as returned by the source API.
// Numbers are kept as json.Number (see DecodeRawLaunches).
type RawLaunch map[string]any

// DecodeRawLaunches parses a JSON array of launch objects, preserving integers.
// Only a non-array top level is an error. An element that is not an object
// becomes a nil RawLaunch, which normalizes to an empty launch_id and fails
// on its own when written.
func DecodeRawLaunches(data []byte) ([]RawLaunch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	out := make([]RawLaunch, 0, len(items))
	for _, it := range items {
		out = append(out, asObject(it))
	}
	return out, nil
}

// Rocket is the flattened rocket sub-record.
type Rocket struct {
	RocketID   string `json:"rocket_id" dynamodbav:"rocket_id"`
	RocketName string `json:"rocket_name" dynamodbav:"rocket_name"`
	RocketType string `json:"rocket_type" dynamodbav:"rocket_type"`
}

// Payload is one flattened payload in source order.
type Payload struct {
	PayloadID      string   `json:"payload_id" dynamodbav:"payload_id"`
	PayloadType    string   `json:"payload_type" dynamodbav:"payload_type"`
	PayloadMassKg  *float64 `json:"payload_mass_kg" dynamodbav:"payload_mass_kg"`
	PayloadMassLbs *float64 `json:"payload_mass_lbs" dynamodbav:"payload_mass_lbs"`
	Orbit          string   `json:"orbit" dynamodbav:"orbit"`
	Customers      []string `json:"customers" dynamodbav:"customers"`
	Manufacturer   string   `json:"manufacturer" dynamodbav:"manufacturer"`
	Nationality    string   `json:"nationality" dynamodbav:"nationality"`
}

// Launch is the canonical record written to the launches table, keyed by LaunchID.
type Launch struct {
	LaunchID        string    `json:"launch_id" dynamodbav:"launch_id"`
	FlightNumber    *int64    `json:"flight_number" dynamodbav:"flight_number"`
	MissionName     string    `json:"mission_name" dynamodbav:"mission_name"`
	RocketName      string    `json:"rocket_name" dynamodbav:"rocket_name"`
	LaunchDate      string    `json:"launch_date" dynamodbav:"launch_date"`
	LaunchDateLocal string    `json:"launch_date_local" dynamodbav:"launch_date_local"`
	Status          Status    `json:"status" dynamodbav:"status"`
	LaunchSuccess   *bool     `json:"launch_success" dynamodbav:"launch_success"`
	Upcoming        bool      `json:"upcoming" dynamodbav:"upcoming"`
	Details         string    `json:"details" dynamodbav:"details"`
	Rocket          Rocket    `json:"rocket" dynamodbav:"rocket"`
	Payloads        []Payload `json:"payloads" dynamodbav:"payloads"`
	LastUpdated     string    `json:"last_updated" dynamodbav:"last_updated"`
	APIVersion      string    `json:"api_version" dynamodbav:"api_version"`
}

// FlightNumberOrZero is used for ordering; records without a flight number sort as 0.
func (l Launch) FlightNumberOrZero() int64 {
	if l.FlightNumber == nil {
		return 0
	}
	return *l.FlightNumber
}

// Now returns the stamp time for LastUpdated. Split for testability.
var Now = func() time.Time { return time.Now().UTC() }

// Normalize converts a raw source launch into the canonical record.
// It never fails: every absent field falls back to its default.
func Normalize(raw RawLaunch) Launch {
	rocket := raw.object("rocket")

	return Launch{
		LaunchID:        raw.flightKey(),
		FlightNumber:    raw.integer("flight_number"),
		MissionName:     raw.str("mission_name", unknownMission),
		RocketName:      rocket.str("rocket_name", unknownRocket),
		LaunchDate:      raw.str("launch_date_utc", ""),
		LaunchDateLocal: raw.str("launch_date_local", ""),
		Status:          Classify(raw),
		LaunchSuccess:   raw.nullableBool("launch_success"),
		Upcoming:        raw.boolean("upcoming"),
		Details:         raw.str("details", ""),
		Rocket: Rocket{
			RocketID:   rocket.str("rocket_id", ""),
			RocketName: rocket.str("rocket_name", ""),
			RocketType: rocket.str("rocket_type", ""),
		},
		Payloads:    normalizePayloads(raw.list("payloads")),
		LastUpdated: Now().UTC().Format(time.RFC3339Nano),
		APIVersion:  APIVersion,
	}
}

func normalizePayloads(items []any) []Payload {
	out := make([]Payload, 0, len(items))
	for _, it := range items {
		raw := asObject(it)
		out = append(out, Payload{
			PayloadID:      raw.str("payload_id", ""),
			PayloadType:    raw.str("payload_type", ""),
			PayloadMassKg:  raw.float("payload_mass_kg"),
			PayloadMassLbs: raw.float("payload_mass_lbs"),
			Orbit:          raw.str("orbit", ""),
			Customers:      raw.strings("customers"),
			Manufacturer:   raw.str("manufacturer", ""),
			Nationality:    raw.str("nationality", ""),
		})
	}
	return out
}

// FlightLabel is a best-effort identifier for log lines.
func (r RawLaunch) FlightLabel() string {
	if k := r.flightKey(); k != "" {
		return k
	}
	return "unknown"
}

// flightKey stringifies the flight number; empty when absent or null.
func (r RawLaunch) flightKey() string {
	switch v := r["flight_number"].(type) {
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	default:
		return ""
	}
}

// str returns the string at key, or def when the key is absent.
// A present null or a non-string value also yields def.
func (r RawLaunch) str(key, def string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return def
}

func (r RawLaunch) boolean(key string) bool {
	b, _ := r[key].(bool)
	return b
}

func (r RawLaunch) nullableBool(key string) *bool {
	b, ok := r[key].(bool)
	if !ok {
		return nil
	}
	return &b
}

func (r RawLaunch) integer(key string) *int64 {
	switch v := r[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil
		}
		return &n
	case float64:
		if v != float64(int64(v)) {
			return nil
		}
		n := int64(v)
		return &n
	case int:
		n := int64(v)
		return &n
	case int64:
		return &v
	}
	return nil
}

func (r RawLaunch) float(key string) *float64 {
	switch v := r[key].(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return &f
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	}
	return nil
}

func (r RawLaunch) object(key string) RawLaunch {
	return asObject(r[key])
}

func asObject(v any) RawLaunch {
	switch m := v.(type) {
	case map[string]any:
		return RawLaunch(m)
	case RawLaunch:
		return m
	}
	return nil
}

func (r RawLaunch) list(key string) []any {
	l, _ := r[key].([]any)
	return l
}

func (r RawLaunch) strings(key string) []string {
	items := r.list(key)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
