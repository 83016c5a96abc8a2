package nearlot

import "time"

// Status is the lifecycle state of a lot.
type Status string

// Lot statuses. An empty Status in Nearby matches every lot.
const (
	StatusActive    Status = "active"
	StatusConfirmed Status = "confirmed"
	StatusFinished  Status = "finished"
)

// LotDraft is what a merchant supplies to register a lot.
type LotDraft struct {
	MerchantID           string
	MerchantName         string
	MerchantAddressShort string
	WeightKg             float64
	ImageURL             string
	Description          string // generated when empty
	LimitDate            time.Time
	Latitude             float64
	Longitude            float64
}

// Lot is a stored batch of surplus produce.
type Lot struct {
	ID                   string
	MerchantID           string
	MerchantName         string
	MerchantAddressShort string
	Status               Status
	WeightKg             float64
	ImageURL             string
	Description          string
	LimitDate            time.Time
	CreatedAt            time.Time
	Latitude             float64
	Longitude            float64
	SpatialKey           string
}

// NearbyLot is a proximity search hit.
type NearbyLot struct {
	Lot
	DistanceKm float64
}

// DescribeInput is passed to a Describer for lots registered without a description.
type DescribeInput struct {
	MerchantName string
	WeightKg     float64
	ImageURL     string
	LimitDate    time.Time
}
