package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// Mode only changes how much the response reports, never what the pipeline does.
type Mode string

const (
	Scheduled Mode = "scheduled"
	Manual    Mode = "manual"
)

// ManualSource is the explicit marker a caller can put in "source" to ask for a detailed run.
const ManualSource = "manual-test"

// Trigger holds the only inbound fields that are read.
type Trigger struct {
	HTTPMethod string          `json:"httpMethod"`
	Source     string          `json:"source"`
	Body       json.RawMessage `json:"body"`
}

// ScheduledTrigger is what the periodic schedule sends.
var ScheduledTrigger = Trigger{Source: "aws.events"}

// modeRules are checked in order; the first match makes the run manual.
var modeRules = []struct {
	name  string
	match func(Trigger) bool
}{
	{"post", func(t Trigger) bool { return strings.EqualFold(t.HTTPMethod, http.MethodPost) }},
	{"marker", func(t Trigger) bool { return t.Source == ManualSource }},
	{"body", func(t Trigger) bool { return hasBody(t.Body) }},
}

// Mode classifies the trigger. There is no authoritative signal; anything
// that looks like a person calling the endpoint counts as manual.
func (t Trigger) Mode() Mode {
	if _, ok := t.manualRule(); ok {
		return Manual
	}
	return Scheduled
}

func (t Trigger) manualRule() (string, bool) {
	for _, r := range modeRules {
		if r.match(t) {
			return r.name, true
		}
	}
	return "", false
}

// hasBody treats any string other than "" as a body, whitespace included.
func hasBody(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "", "null", `""`:
		return false
	}
	return true
}

// DecodeTrigger reads a raw event field by field, so a mistyped field only
// loses its own signal. Events that are not JSON objects are scheduled.
func DecodeTrigger(ev json.RawMessage) Trigger {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(ev, &fields); err != nil {
		return Trigger{}
	}
	var t Trigger
	_ = json.Unmarshal(fields["httpMethod"], &t.HTTPMethod)
	_ = json.Unmarshal(fields["source"], &t.Source)
	t.Body = fields["body"]
	return t
}
