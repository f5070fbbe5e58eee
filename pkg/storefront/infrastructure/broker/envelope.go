package broker

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"storefront/pkg/common/domain"
)

const publishTimeout = 5 * time.Second

type envelope struct {
	ID         uuid.UUID    `json:"id"`
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurredAt"`
	Payload    domain.Event `json:"payload"`
}

func encode(event domain.Event) (uuid.UUID, []byte, error) {
	id := uuid.New()
	body, err := json.Marshal(envelope{
		ID:         id,
		Type:       event.Type(),
		OccurredAt: time.Now().UTC(),
		Payload:    event,
	})
	if err != nil {
		return uuid.Nil, nil, errors.Wrapf(err, "failed to encode %s", event.Type())
	}
	return id, body, nil
}
