package pickup

import (
	"time"

	dompickup "github.com/kailas-cloud/nearlot/internal/domain/pickup"
)

// Record field names.
const (
	fieldLotID        = "lot_id"
	fieldProducerID   = "producer_id"
	fieldProducerName = "producer_name"
	fieldMerchantID   = "merchant_id"
	fieldMerchantName = "merchant_name"
	fieldLotImageURL  = "lot_image_url"
	fieldStatus       = "status"
	fieldScheduledAt  = "scheduled_at"
	fieldCreatedAt    = "created_at"
)

func buildFields(p *dompickup.Pickup) map[string]string {
	return map[string]string{
		fieldLotID:        p.LotID(),
		fieldProducerID:   p.ProducerID(),
		fieldProducerName: p.ProducerName(),
		fieldMerchantID:   p.MerchantID(),
		fieldMerchantName: p.MerchantName(),
		fieldLotImageURL:  p.LotImageURL(),
		fieldStatus:       string(p.Status()),
		fieldScheduledAt:  p.ScheduledAt().UTC().Format(time.RFC3339Nano),
		fieldCreatedAt:    p.CreatedAt().UTC().Format(time.RFC3339Nano),
	}
}

// parseFields rebuilds a booking. Malformed times decode as zero.
func parseFields(id string, m map[string]string) dompickup.Pickup {
	return dompickup.Reconstruct(dompickup.State{
		ID:           id,
		LotID:        m[fieldLotID],
		ProducerID:   m[fieldProducerID],
		ProducerName: m[fieldProducerName],
		MerchantID:   m[fieldMerchantID],
		MerchantName: m[fieldMerchantName],
		LotImageURL:  m[fieldLotImageURL],
		Status:       dompickup.Status(m[fieldStatus]),
		ScheduledAt:  parseTime(m[fieldScheduledAt]),
		CreatedAt:    parseTime(m[fieldCreatedAt]),
	})
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
