package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"pulsetrack-api/internal/ingest/core/domain"
	"pulsetrack-api/internal/ingest/core/ports"
)

var (
	ErrUnknownSite        = errors.New("unknown site id")
	ErrInvalidEventName   = errors.New("invalid event name")
	ErrMissingVisitor     = errors.New("visitor id is required")
	ErrPayloadTooLarge    = errors.New("properties payload too large")
	ErrTimestampSkew      = errors.New("timestamp outside accepted window")
	ErrStorageUnavailable = errors.New("event store unavailable")
)

// Bounds for client-reported timestamps relative to the server clock.
// Anything outside is treated as clock-skew abuse and rejected.
const (
	maxTimestampAge  = 24 * time.Hour
	maxTimestampSkew = 5 * time.Minute
)

type IngestEventUseCase struct {
	log   ports.EventLogPort
	dedup *DedupIndex
	sites map[int64]struct{}

	maxPropertiesBytes int

	now func() time.Time
}

func NewIngestEventUseCase(log ports.EventLogPort, dedup *DedupIndex, siteIDs []int64, maxPropertiesBytes int) *IngestEventUseCase {
	sites := make(map[int64]struct{}, len(siteIDs))
	for _, id := range siteIDs {
		sites[id] = struct{}{}
	}
	return &IngestEventUseCase{
		log:                log,
		dedup:              dedup,
		sites:              sites,
		maxPropertiesBytes: maxPropertiesBytes,
		now:                time.Now,
	}
}

type IngestInput struct {
	SiteID     int64
	VisitorID  string
	Name       string
	OccurredAt int64 // unix seconds, 0 means "use server time"
	Properties map[string]any
}

type IngestResult struct {
	EventID   string
	Duplicate bool
}

// Execute validates, deduplicates and durably appends one beacon. A duplicate
// delivery is a success-with-no-op that reports the original event's id.
func (uc *IngestEventUseCase) Execute(ctx context.Context, in IngestInput) (IngestResult, error) {
	received := uc.now().UTC()

	e, err := uc.validate(in, received)
	if err != nil {
		return IngestResult{}, err
	}

	// Fast path: key already resolved within the recent window.
	if winnerID, ok := uc.dedup.Lookup(e.SiteID, e.IdempotencyKey); ok {
		return IngestResult{EventID: winnerID, Duplicate: true}, nil
	}

	out, err := uc.log.AppendEvent(ctx, e)
	if err != nil {
		return IngestResult{}, errors.Join(ErrStorageUnavailable, err)
	}

	// Record whichever id won so later retries short-circuit in memory.
	uc.dedup.Record(e.SiteID, e.IdempotencyKey, out.EventID)

	return IngestResult{EventID: out.EventID, Duplicate: out.Duplicate}, nil
}

func (uc *IngestEventUseCase) validate(in IngestInput, received time.Time) (*domain.Event, error) {
	if _, ok := uc.sites[in.SiteID]; !ok {
		return nil, ErrUnknownSite
	}

	name := domain.EventName(in.Name)
	if !name.Valid() {
		return nil, ErrInvalidEventName
	}

	if in.VisitorID == "" {
		return nil, ErrMissingVisitor
	}

	if in.Properties == nil {
		in.Properties = map[string]any{}
	}
	raw, err := json.Marshal(in.Properties)
	if err != nil {
		return nil, ErrPayloadTooLarge
	}
	if len(raw) > uc.maxPropertiesBytes {
		return nil, ErrPayloadTooLarge
	}

	occurred := received
	if in.OccurredAt != 0 {
		occurred = time.Unix(in.OccurredAt, 0).UTC()
		if occurred.Before(received.Add(-maxTimestampAge)) || occurred.After(received.Add(maxTimestampSkew)) {
			return nil, ErrTimestampSkew
		}
	}

	return &domain.Event{
		ID:             uuid.New().String(),
		SiteID:         in.SiteID,
		VisitorID:      in.VisitorID,
		Name:           name,
		Properties:     in.Properties,
		OccurredAt:     occurred,
		ReceivedAt:     received,
		IdempotencyKey: domain.IdempotencyKey(in.SiteID, in.VisitorID, name, occurred),
	}, nil
}
