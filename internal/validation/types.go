package validation

import "github.com/imrishuroy/gp-notifier/internal/sightings"

// IngestBatchRequest is the payload for POST /pets.
// Embeds must be present; an empty list is a valid batch.
type IngestBatchRequest struct {
	Embeds []sightings.RawEmbed `json:"embeds" validate:"required"`
}
