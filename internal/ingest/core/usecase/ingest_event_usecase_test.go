package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulsetrack-api/internal/ingest/core/domain"
	"pulsetrack-api/internal/ingest/core/ports"
	"pulsetrack-api/internal/ingest/core/usecase"
)

// Fake log implementing EventLogPort
type fakeEventLog struct {
	AppendFn    func(ctx context.Context, e *domain.Event) (ports.AppendOutcome, error)
	appendCalls int
}

func (f *fakeEventLog) AppendEvent(ctx context.Context, e *domain.Event) (ports.AppendOutcome, error) {
	f.appendCalls++
	if f.AppendFn != nil {
		return f.AppendFn(ctx, e)
	}
	return ports.AppendOutcome{EventID: e.ID}, nil
}

func (f *fakeEventLog) ReplayFrom(ctx context.Context, offset int64, limit int) ([]ports.StoredEvent, error) {
	return nil, nil
}

func (f *fakeEventLog) ReplaySince(ctx context.Context, receivedAfter time.Time, limit int) ([]ports.StoredEvent, error) {
	return nil, nil
}

func newUseCase(log *fakeEventLog) *usecase.IngestEventUseCase {
	dedup := usecase.NewDedupIndex(time.Hour, 1000)
	return usecase.NewIngestEventUseCase(log, dedup, []int64{1, 2}, 1024)
}

// ------------------------------------------------------------
// SUCCESS
// ------------------------------------------------------------
func TestIngestEvent_Success(t *testing.T) {
	log := &fakeEventLog{
		AppendFn: func(ctx context.Context, e *domain.Event) (ports.AppendOutcome, error) {
			if e.SiteID != 1 {
				t.Fatalf("expected site_id 1, got %d", e.SiteID)
			}
			if e.Name != domain.EventPageview {
				t.Fatalf("expected name 'pageview', got %s", e.Name)
			}
			if e.VisitorID != "visitor_1" {
				t.Fatalf("expected visitor 'visitor_1', got %s", e.VisitorID)
			}
			if e.ID == "" {
				t.Fatalf("expected server-assigned event id, got empty")
			}
			if e.IdempotencyKey == "" {
				t.Fatalf("expected idempotency key, got empty")
			}
			return ports.AppendOutcome{EventID: e.ID}, nil
		},
	}

	uc := newUseCase(log)

	res, err := uc.Execute(context.Background(), usecase.IngestInput{
		SiteID:     1,
		VisitorID:  "visitor_1",
		Name:       "pageview",
		OccurredAt: time.Now().Add(-time.Minute).Unix(),
		Properties: map[string]any{"path": "/pricing"},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Duplicate {
		t.Fatalf("expected duplicate=false, got true")
	}
	if res.EventID == "" {
		t.Fatalf("expected event id, got empty")
	}
	if log.appendCalls != 1 {
		t.Fatalf("expected 1 append, got %d", log.appendCalls)
	}
}

// ------------------------------------------------------------
// VALIDATION
// ------------------------------------------------------------
func TestIngestEvent_UnknownSite(t *testing.T) {
	log := &fakeEventLog{}
	uc := newUseCase(log)

	_, err := uc.Execute(context.Background(), usecase.IngestInput{
		SiteID:    99,
		VisitorID: "visitor_1",
		Name:      "pageview",
	})

	if !errors.Is(err, usecase.ErrUnknownSite) {
		t.Fatalf("expected ErrUnknownSite, got %v", err)
	}
	if log.appendCalls != 0 {
		t.Fatalf("expected no append for rejected event")
	}
}

func TestIngestEvent_InvalidEventName(t *testing.T) {
	log := &fakeEventLog{}
	uc := newUseCase(log)

	for _, name := range []string{"", "purchase", "PAGEVIEW"} {
		_, err := uc.Execute(context.Background(), usecase.IngestInput{
			SiteID:    1,
			VisitorID: "visitor_1",
			Name:      name,
		})
		if !errors.Is(err, usecase.ErrInvalidEventName) {
			t.Fatalf("name %q: expected ErrInvalidEventName, got %v", name, err)
		}
	}
}

func TestIngestEvent_MissingVisitor(t *testing.T) {
	log := &fakeEventLog{}
	uc := newUseCase(log)

	_, err := uc.Execute(context.Background(), usecase.IngestInput{
		SiteID: 1,
		Name:   "pageview",
	})

	if !errors.Is(err, usecase.ErrMissingVisitor) {
		t.Fatalf("expected ErrMissingVisitor, got %v", err)
	}
}

func TestIngestEvent_PayloadTooLarge(t *testing.T) {
	log := &fakeEventLog{}
	uc := newUseCase(log)

	big := make([]byte, 2048)
	for i := range big {
		big[i] = 'x'
	}

	_, err := uc.Execute(context.Background(), usecase.IngestInput{
		SiteID:     1,
		VisitorID:  "visitor_1",
		Name:       "pageview",
		Properties: map[string]any{"blob": string(big)},
	})

	if !errors.Is(err, usecase.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestIngestEvent_TimestampSkew(t *testing.T) {
	log := &fakeEventLog{}
	uc := newUseCase(log)

	tests := []int64{
		time.Now().Add(-48 * time.Hour).Unix(), // too old
		time.Now().Add(time.Hour).Unix(),       // too far in the future
	}
	for _, ts := range tests {
		_, err := uc.Execute(context.Background(), usecase.IngestInput{
			SiteID:     1,
			VisitorID:  "visitor_1",
			Name:       "pageview",
			OccurredAt: ts,
		})
		if !errors.Is(err, usecase.ErrTimestampSkew) {
			t.Fatalf("timestamp %d: expected ErrTimestampSkew, got %v", ts, err)
		}
	}
}

func TestIngestEvent_ZeroTimestampUsesServerTime(t *testing.T) {
	var got time.Time
	log := &fakeEventLog{
		AppendFn: func(ctx context.Context, e *domain.Event) (ports.AppendOutcome, error) {
			got = e.OccurredAt
			return ports.AppendOutcome{EventID: e.ID}, nil
		},
	}
	uc := newUseCase(log)

	before := time.Now().UTC().Add(-time.Second)
	_, err := uc.Execute(context.Background(), usecase.IngestInput{
		SiteID:    1,
		VisitorID: "visitor_1",
		Name:      "pageview",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Before(before) || got.After(time.Now().UTC().Add(time.Second)) {
		t.Fatalf("expected occurred_at near server time, got %v", got)
	}
}

// ------------------------------------------------------------
// DUPLICATES
// ------------------------------------------------------------
func TestIngestEvent_DuplicateFromLog(t *testing.T) {
	log := &fakeEventLog{
		AppendFn: func(ctx context.Context, e *domain.Event) (ports.AppendOutcome, error) {
			return ports.AppendOutcome{EventID: "winner-id", Duplicate: true}, nil
		},
	}
	uc := newUseCase(log)

	res, err := uc.Execute(context.Background(), usecase.IngestInput{
		SiteID:     1,
		VisitorID:  "visitor_1",
		Name:       "pageview",
		OccurredAt: time.Now().Add(-time.Minute).Unix(),
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Duplicate {
		t.Fatalf("expected duplicate=true")
	}
	if res.EventID != "winner-id" {
		t.Fatalf("expected the winner's id, got %s", res.EventID)
	}
}

func TestIngestEvent_RetryShortCircuitsInMemory(t *testing.T) {
	log := &fakeEventLog{}
	uc := newUseCase(log)

	in := usecase.IngestInput{
		SiteID:     1,
		VisitorID:  "visitor_1",
		Name:       "pageview",
		OccurredAt: time.Now().Add(-time.Minute).Unix(),
	}

	first, err := uc.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := uc.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !second.Duplicate {
		t.Fatalf("expected duplicate=true on retry")
	}
	if second.EventID != first.EventID {
		t.Fatalf("expected retry to report id %s, got %s", first.EventID, second.EventID)
	}
	if log.appendCalls != 1 {
		t.Fatalf("expected retry to skip the log, got %d appends", log.appendCalls)
	}
}

// ------------------------------------------------------------
// STORAGE ERROR
// ------------------------------------------------------------
func TestIngestEvent_StorageError(t *testing.T) {
	log := &fakeEventLog{
		AppendFn: func(ctx context.Context, e *domain.Event) (ports.AppendOutcome, error) {
			return ports.AppendOutcome{}, errors.New("connection refused")
		},
	}
	uc := newUseCase(log)

	_, err := uc.Execute(context.Background(), usecase.IngestInput{
		SiteID:     1,
		VisitorID:  "visitor_1",
		Name:       "pageview",
		OccurredAt: time.Now().Add(-time.Minute).Unix(),
	})

	if !errors.Is(err, usecase.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
