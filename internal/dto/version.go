package dto

import (
	"encoding/json"
	"time"

	"github.com/polisys/ledgercore/internal/core/domain"
)

// RecordVersionRequest creates the first version of an entity, or a
// correction when sent to the correct endpoint.
type RecordVersionRequest struct {
	Payload    json.RawMessage `json:"payload" binding:"required"`
	ValidFrom  time.Time       `json:"validFrom" binding:"required"`
	ValidUntil *time.Time      `json:"validUntil"`
}

// ValidPeriod builds the domain period from the request fields.
func (r RecordVersionRequest) ValidPeriod() (domain.ValidPeriod, error) {
	if r.ValidUntil == nil {
		return domain.OpenValidPeriod(r.ValidFrom), nil
	}
	return domain.NewValidPeriod(r.ValidFrom, *r.ValidUntil)
}

// VersionResponse mirrors one bi-temporal version for the wire.
type VersionResponse struct {
	EntityID     string          `json:"entityID"`
	VersionID    string          `json:"versionID"`
	ValidFrom    time.Time       `json:"validFrom"`
	ValidUntil   *time.Time      `json:"validUntil,omitempty"`
	RecordedAt   time.Time       `json:"recordedAt"`
	SupersededAt *time.Time      `json:"supersededAt,omitempty"`
	IsCurrent    bool            `json:"isCurrent"`
	Payload      json.RawMessage `json:"payload"`
}

// ToVersionResponse converts a bi-temporal record to its response DTO.
func ToVersionResponse(rec *domain.BiTemporalRecord[json.RawMessage]) VersionResponse {
	return VersionResponse{
		EntityID:     rec.EntityID,
		VersionID:    rec.VersionID.String(),
		ValidFrom:    rec.ValidPeriod.Start,
		ValidUntil:   rec.ValidPeriod.End,
		RecordedAt:   rec.SystemPeriod.RecordedAt,
		SupersededAt: rec.SystemPeriod.SupersededAt,
		IsCurrent:    rec.IsCurrent(),
		Payload:      rec.Payload,
	}
}

// VersionHistoryResponse wraps the full version chain of an entity.
type VersionHistoryResponse struct {
	EntityID string            `json:"entityID"`
	Versions []VersionResponse `json:"versions"`
}
