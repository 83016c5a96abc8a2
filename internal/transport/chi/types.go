package chi

import (
	"time"

	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
	dompickup "github.com/kailas-cloud/nearlot/internal/domain/pickup"
	domprox "github.com/kailas-cloud/nearlot/internal/domain/proximity"
)

// ErrorCode is the machine-readable error code returned to clients.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeForbidden        ErrorCode = "forbidden"
	ErrorCodeLotNotFound      ErrorCode = "lot_not_found"
	ErrorCodeLotAlreadyExists ErrorCode = "lot_already_exists"
	ErrorCodeLotUnavailable   ErrorCode = "lot_unavailable"
	ErrorCodePickupNotFound   ErrorCode = "pickup_not_found"
	ErrorCodeRateLimited      ErrorCode = "rate_limited"
	ErrorCodeStoreUnavailable ErrorCode = "store_unavailable"
	ErrorCodeDescriberError   ErrorCode = "describer_error"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Location is a latitude/longitude pair in degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RegisterLotRequest is the body of POST /lots.
type RegisterLotRequest struct {
	MerchantID           string    `json:"merchant_id,omitempty"`
	MerchantName         string    `json:"merchant_name,omitempty"`
	MerchantAddressShort string    `json:"merchant_address_short,omitempty"`
	WeightKg             float64   `json:"weight_kg"`
	ImageURL             string    `json:"image_url,omitempty"`
	Description          string    `json:"description,omitempty"`
	LimitDate            time.Time `json:"limit_date"`
	Location             *Location `json:"location"`
}

// UpdateStatusRequest is the body of PATCH /lots/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// LotResponse is a lot as returned by the API.
type LotResponse struct {
	ID                   string    `json:"id"`
	MerchantID           string    `json:"merchant_id"`
	MerchantName         string    `json:"merchant_name,omitempty"`
	MerchantAddressShort string    `json:"merchant_address_short,omitempty"`
	Status               string    `json:"status"`
	WeightKg             float64   `json:"weight_kg"`
	ImageURL             string    `json:"image_url,omitempty"`
	Description          string    `json:"description,omitempty"`
	LimitDate            time.Time `json:"limit_date"`
	CreatedAt            time.Time `json:"created_at"`
	Location             Location  `json:"location"`
	SpatialKey           string    `json:"spatial_key"`
	DistanceKm           *float64  `json:"distance_km,omitempty"`
}

// LotListResponse wraps a list of lots.
type LotListResponse struct {
	Items []LotResponse `json:"items"`
	Count int           `json:"count"`
}

// SchedulePickupRequest is the body of POST /lots/{id}/pickups.
// Producer fields are taken from the token when a producer calls.
type SchedulePickupRequest struct {
	ProducerID   string    `json:"producer_id,omitempty"`
	ProducerName string    `json:"producer_name,omitempty"`
	ScheduledAt  time.Time `json:"scheduled_at"`
}

// PickupResponse is a pickup booking as returned by the API.
type PickupResponse struct {
	ID           string    `json:"id"`
	LotID        string    `json:"lot_id"`
	ProducerID   string    `json:"producer_id"`
	ProducerName string    `json:"producer_name,omitempty"`
	MerchantID   string    `json:"merchant_id"`
	MerchantName string    `json:"merchant_name,omitempty"`
	LotImageURL  string    `json:"lot_image_url,omitempty"`
	Status       string    `json:"status"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// PickupListResponse wraps a list of pickup bookings.
type PickupListResponse struct {
	Items []PickupResponse `json:"items"`
	Count int              `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

func lotToResponse(l *domlot.Lot) LotResponse {
	loc := l.Location()
	return LotResponse{
		ID:                   l.ID(),
		MerchantID:           l.MerchantID(),
		MerchantName:         l.MerchantName(),
		MerchantAddressShort: l.MerchantAddressShort(),
		Status:               l.Status().String(),
		WeightKg:             l.WeightKg(),
		ImageURL:             l.ImageURL(),
		Description:          l.Description(),
		LimitDate:            l.LimitDate(),
		CreatedAt:            l.CreatedAt(),
		Location:             Location{Latitude: loc.Latitude, Longitude: loc.Longitude},
		SpatialKey:           l.SpatialKey(),
	}
}

func resultToResponse(r *domprox.Result) LotResponse {
	resp := lotToResponse(&r.Lot)
	d := r.DistanceKm
	resp.DistanceKm = &d
	return resp
}

func lotsToList(lots []domlot.Lot) LotListResponse {
	items := make([]LotResponse, len(lots))
	for i := range lots {
		items[i] = lotToResponse(&lots[i])
	}
	return LotListResponse{Items: items, Count: len(items)}
}

func pickupToResponse(p *dompickup.Pickup) PickupResponse {
	return PickupResponse{
		ID:           p.ID(),
		LotID:        p.LotID(),
		ProducerID:   p.ProducerID(),
		ProducerName: p.ProducerName(),
		MerchantID:   p.MerchantID(),
		MerchantName: p.MerchantName(),
		LotImageURL:  p.LotImageURL(),
		Status:       p.Status().String(),
		ScheduledAt:  p.ScheduledAt(),
		CreatedAt:    p.CreatedAt(),
	}
}

func pickupsToList(ps []dompickup.Pickup) PickupListResponse {
	items := make([]PickupResponse, len(ps))
	for i := range ps {
		items[i] = pickupToResponse(&ps[i])
	}
	return PickupListResponse{Items: items, Count: len(items)}
}
