package jobs

// Status represents the lifecycle state of a duration-extraction job in the
// video_duration_extraction_jobs table. These values must match the text
// values stored in the database.
//
// Centralizing these here avoids scattering string literals like "pending"
// or "completed" across packages.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
// Failed jobs are not retried automatically; resolution is operator-driven.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
