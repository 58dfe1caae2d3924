package intake

import (
	"context"

	"github.com/google/uuid"

	"sitewire_backend/internal/comms"
	"sitewire_backend/internal/events"
	"sitewire_backend/platform/logger"
)

// Pipeline advances a stored communication through correlation, session
// tracking, and the decision engine.
type Pipeline interface {
	ProcessCommunication(ctx context.Context, comm comms.Communication) error
}

// CommStore persists normalized communications.
type CommStore interface {
	Insert(ctx context.Context, c comms.Communication) (comms.Communication, error)
}

// RawStore persists raw webhook payloads verbatim.
type RawStore interface {
	StoreRaw(ctx context.Context, companyID uuid.UUID, provider, contentType string, payload []byte) (uuid.UUID, error)
	GetRaw(ctx context.Context, id uuid.UUID) (RawWebhook, error)
}

// Deferrer queues a stored communication for background reprocessing when
// inline pipeline processing fails.
type Deferrer interface {
	ScheduleCommunicationProcess(ctx context.Context, communicationID uuid.UUID) error
}

// Service handles webhook intake. The contract with providers: store the
// raw payload first, acknowledge, and never let downstream processing
// failures surface as webhook errors.
type Service struct {
	raw        RawStore
	commStore  CommStore
	normalizer *Normalizer
	pipeline   Pipeline
	deferrer   Deferrer
	bus        events.Bus
	log        *logger.Logger
}

func NewService(raw RawStore, commStore CommStore, pipeline Pipeline, deferrer Deferrer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		raw:        raw,
		commStore:  commStore,
		normalizer: NewNormalizer(),
		pipeline:   pipeline,
		deferrer:   deferrer,
		bus:        bus,
		log:        log,
	}
}

// Ingest stores and processes one inbound webhook. The returned webhook ID is
// valid whenever the raw payload was persisted, regardless of what happened
// after; only a raw store failure returns an error.
func (s *Service) Ingest(ctx context.Context, companyID uuid.UUID, provider, contentType string, payload []byte) (uuid.UUID, error) {
	rawID, err := s.raw.StoreRaw(ctx, companyID, provider, contentType, payload)
	if err != nil {
		return uuid.Nil, err
	}
	s.log.WebhookReceived(provider, rawID.String(), len(payload))

	comm := s.normalizer.Normalize(companyID, rawID, provider, contentType, payload)

	stored, err := s.commStore.Insert(ctx, comm)
	if err != nil {
		// Raw payload is safe; the communication can be rebuilt from it.
		s.log.DatabaseError("insert communication", err)
		return rawID, nil
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.CommunicationReceived{
			BaseEvent:       events.NewBaseEvent(),
			CommunicationID: stored.ID,
			CompanyID:       companyID,
			Type:            string(stored.Type),
			Provider:        provider,
		})
	}

	if s.pipeline != nil {
		if err := s.pipeline.ProcessCommunication(ctx, stored); err != nil {
			s.log.Error("pipeline processing failed",
				"communication_id", stored.ID.String(),
				"error", err.Error())
			s.deferProcessing(ctx, stored.ID)
		}
	}

	return rawID, nil
}

// deferProcessing hands a communication whose inline run failed to the
// background queue for another attempt.
func (s *Service) deferProcessing(ctx context.Context, communicationID uuid.UUID) {
	if s.deferrer == nil {
		return
	}
	if err := s.deferrer.ScheduleCommunicationProcess(ctx, communicationID); err != nil {
		s.log.Error("failed to queue communication for reprocessing",
			"communication_id", communicationID.String(),
			"error", err.Error())
	}
}

// GetRaw returns one stored raw webhook for inspection.
func (s *Service) GetRaw(ctx context.Context, id uuid.UUID) (RawWebhook, error) {
	return s.raw.GetRaw(ctx, id)
}
