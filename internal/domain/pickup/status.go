package pickup

import (
	"fmt"

	"github.com/kailas-cloud/nearlot/internal/domain"
)

// Status is the lifecycle state of a pickup booking.
type Status string

// Booking statuses. A producer's booking waits for the merchant, who then
// confirms or rejects it; a confirmed booking is finished after collection.
const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusFinished  Status = "finished"
)

// ParseStatus converts a raw value into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusRejected, StatusFinished:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown pickup status %q", domain.ErrInvalidArgument, s)
	}
}

func (s Status) String() string { return string(s) }
