package lot

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/nearlot/internal/domain/geo"
	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
)

// Record field names.
const (
	fieldMerchantID      = "merchant_id"
	fieldMerchantName    = "merchant_name"
	fieldMerchantAddress = "merchant_address_short"
	fieldStatus          = "status"
	fieldWeightKg        = "weight_kg"
	fieldImageURL        = "image_url"
	fieldDescription     = "description"
	fieldLimitDate       = "limit_date"
	fieldCreatedAt       = "created_at"
	fieldLatitude        = "latitude"
	fieldLongitude       = "longitude"
	fieldSpatialKey      = "spatial_key"
)

// buildFields converts a domain Lot into a flat string map.
func buildFields(l *domlot.Lot) map[string]string {
	loc := l.Location()
	return map[string]string{
		fieldMerchantID:      l.MerchantID(),
		fieldMerchantName:    l.MerchantName(),
		fieldMerchantAddress: l.MerchantAddressShort(),
		fieldStatus:          string(l.Status()),
		fieldWeightKg:        strconv.FormatFloat(l.WeightKg(), 'f', -1, 64),
		fieldImageURL:        l.ImageURL(),
		fieldDescription:     l.Description(),
		fieldLimitDate:       l.LimitDate().UTC().Format(time.RFC3339Nano),
		fieldCreatedAt:       l.CreatedAt().UTC().Format(time.RFC3339Nano),
		fieldLatitude:        strconv.FormatFloat(loc.Latitude, 'f', -1, 64),
		fieldLongitude:       strconv.FormatFloat(loc.Longitude, 'f', -1, 64),
		fieldSpatialKey:      l.SpatialKey(),
	}
}

// parseFields converts a stored field map back into a domain Lot.
// Location is required; a lot without one can never be matched by distance.
// A missing spatial key is kept empty and left for the caller to judge.
func parseFields(id string, m map[string]string) (domlot.Lot, error) {
	lat, err := strconv.ParseFloat(m[fieldLatitude], 64)
	if err != nil {
		return domlot.Lot{}, fmt.Errorf("lot %s: latitude %q: %w", id, m[fieldLatitude], err)
	}
	lon, err := strconv.ParseFloat(m[fieldLongitude], 64)
	if err != nil {
		return domlot.Lot{}, fmt.Errorf("lot %s: longitude %q: %w", id, m[fieldLongitude], err)
	}
	loc := geo.Coordinate{Latitude: lat, Longitude: lon}
	if err := loc.Validate(); err != nil {
		return domlot.Lot{}, fmt.Errorf("lot %s: %w", id, err)
	}

	var weight float64
	if raw := m[fieldWeightKg]; raw != "" {
		if weight, err = strconv.ParseFloat(raw, 64); err != nil {
			return domlot.Lot{}, fmt.Errorf("lot %s: weight %q: %w", id, raw, err)
		}
	}

	return domlot.Reconstruct(domlot.State{
		ID:                   id,
		MerchantID:           m[fieldMerchantID],
		MerchantName:         m[fieldMerchantName],
		MerchantAddressShort: m[fieldMerchantAddress],
		Status:               domlot.Status(m[fieldStatus]),
		WeightKg:             weight,
		ImageURL:             m[fieldImageURL],
		Description:          m[fieldDescription],
		LimitDate:            parseTime(m[fieldLimitDate]),
		CreatedAt:            parseTime(m[fieldCreatedAt]),
		Location:             loc,
		SpatialKey:           m[fieldSpatialKey],
	}), nil
}

// parseTime returns the zero time for empty or malformed values.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
