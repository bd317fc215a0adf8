package jobs

import (
	"time"

	"github.com/google/uuid"
)

// DurationJob is one row of the duration-extraction queue. ID is assigned by
// a bigserial and doubles as the claim-fairness ordering key. StartedAt is
// nil while the job is pending and is overwritten on every claim, which is
// what makes stuck-job recovery possible without a heartbeat channel.
type DurationJob struct {
	ID        int64
	VideoID   uuid.UUID
	Status    Status
	CreatedAt time.Time
	StartedAt *time.Time
}
