package dispatch_test

import (
	"context"
	"sync"

	"github.com/dmitrymomot/flagkit/pkg/event"
)

func logEvent(endpoint, revision string, visitorIDs ...string) event.LogEvent {
	visitors := make([]event.Visitor, 0, len(visitorIDs))
	for _, id := range visitorIDs {
		visitors = append(visitors, event.Visitor{
			VisitorID:  id,
			Attributes: []event.Attribute{{EntityID: "a1", Key: "age", Type: event.AttributeTypeCustom, Value: 30}},
			Snapshots: []event.Snapshot{{
				Decisions: []event.Decision{{CampaignID: "9001", ExperimentID: "1001", VariationID: "2001"}},
				Events:    []event.SnapshotEvent{{EntityID: "9001", Key: event.ImpressionKey, Timestamp: 1714564800000, UUID: "uuid-" + id}},
			}},
		})
	}
	return event.LogEvent{
		EndpointURL: endpoint,
		HTTPVerb:    "POST",
		Payload: event.Batch{
			AccountID:       "12001",
			ProjectID:       "11001",
			Revision:        revision,
			ClientName:      "flagkit",
			ClientVersion:   "1.0.0",
			EnrichDecisions: true,
			Visitors:        visitors,
		},
	}
}

type recorder struct {
	mu     sync.Mutex
	events []event.LogEvent
	err    error
	signal chan struct{}
}

func newRecorder() *recorder {
	return &recorder{signal: make(chan struct{}, 100)}
}

func (r *recorder) DispatchEvent(_ context.Context, e event.LogEvent) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	err := r.err
	r.mu.Unlock()
	r.signal <- struct{}{}
	return err
}

func (r *recorder) received() []event.LogEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.LogEvent(nil), r.events...)
}

func visitorIDs(e event.LogEvent) []string {
	ids := make([]string, 0, len(e.Payload.Visitors))
	for _, v := range e.Payload.Visitors {
		ids = append(ids, v.VisitorID)
	}
	return ids
}
