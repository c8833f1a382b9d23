package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/salesdesk/pkg/messaging"
	"github.com/google/uuid"
)

type SaleCompletedEvent struct {
	SaleID      uuid.UUID `json:"sale_id"`
	Total       int64     `json:"total"`
	LineCount   int       `json:"line_count"`
	CompletedAt time.Time `json:"completed_at"`
}

func (s SaleCompletedEvent) Subject() string {
	return messaging.SalesCompletedSubject
}

func (s SaleCompletedEvent) Payload() ([]byte, error) {
	return json.Marshal(s)
}
