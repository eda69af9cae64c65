package model

// Status is the lifecycle state of a launch.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusUnknown  Status = "unknown"
)

// Classify derives the status of a raw launch. The upcoming flag wins over
// any recorded outcome; only a literal boolean success flag counts.
func Classify(raw RawLaunch) Status {
	if raw.boolean("upcoming") {
		return StatusUpcoming
	}
	success, ok := raw["launch_success"].(bool)
	switch {
	case ok && success:
		return StatusSuccess
	case ok && !success:
		return StatusFailed
	default:
		return StatusUnknown
	}
}
