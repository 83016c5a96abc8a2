package lot

import (
	"fmt"

	"github.com/kailas-cloud/nearlot/internal/domain"
)

// Status is the lifecycle state of a lot.
type Status string

// Lot statuses. A lot starts active, gets confirmed once a pickup is
// scheduled, and is finished after pickup.
const (
	StatusActive    Status = "active"
	StatusConfirmed Status = "confirmed"
	StatusFinished  Status = "finished"
)

// ParseStatus converts a raw value into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusConfirmed, StatusFinished:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown lot status %q", domain.ErrInvalidArgument, s)
	}
}

func (s Status) String() string { return string(s) }
