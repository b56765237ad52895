package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/dmitrymomot/flagkit/pkg/event"
	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// NewOpenSearchClient creates a client and verifies the cluster is
// reachable.
func NewOpenSearchClient(ctx context.Context, cfg OpenSearchConfig) (*opensearch.Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("%w: opensearch addresses are required", ErrInvalidConfig)
	}
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		MaxRetries:   cfg.MaxRetries,
		DisableRetry: cfg.DisableRetry,
	})
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if err := OpenSearchHealthcheck(client)(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// OpenSearchHealthcheck returns a check suitable for readiness endpoints.
func OpenSearchHealthcheck(client *opensearch.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := client.Info(client.Info.WithContext(ctx))
		if err != nil {
			return errors.Join(ErrHealthcheck, err)
		}
		defer func() { _ = res.Body.Close() }()
		if res.IsError() {
			return fmt.Errorf("%w: %s", ErrHealthcheck, res.Status())
		}
		return nil
	}
}

// SnapshotDocument is one indexed event with its visitor context.
type SnapshotDocument struct {
	AccountID  string           `json:"account_id"`
	ProjectID  string           `json:"project_id"`
	Revision   string           `json:"revision"`
	VisitorID  string           `json:"visitor_id"`
	EventKey   string           `json:"event_key"`
	EntityID   string           `json:"entity_id"`
	Timestamp  int64            `json:"timestamp"`
	Attributes map[string]any   `json:"attributes,omitempty"`
	Decisions  []event.Decision `json:"decisions,omitempty"`
	Tags       map[string]any   `json:"tags,omitempty"`
	Revenue    *int64           `json:"revenue,omitempty"`
	Value      *float64         `json:"value,omitempty"`
}

// Documents flattens a batch into one document per snapshot event, keyed
// by event UUID.
func Documents(b event.Batch) (ids []string, docs []SnapshotDocument) {
	for _, v := range b.Visitors {
		attrs := make(map[string]any, len(v.Attributes))
		for _, a := range v.Attributes {
			attrs[a.Key] = a.Value
		}
		for _, s := range v.Snapshots {
			for _, se := range s.Events {
				ids = append(ids, se.UUID)
				docs = append(docs, SnapshotDocument{
					AccountID:  b.AccountID,
					ProjectID:  b.ProjectID,
					Revision:   b.Revision,
					VisitorID:  v.VisitorID,
					EventKey:   se.Key,
					EntityID:   se.EntityID,
					Timestamp:  se.Timestamp,
					Attributes: attrs,
					Decisions:  s.Decisions,
					Tags:       se.Tags,
					Revenue:    se.Revenue,
					Value:      se.Value,
				})
			}
		}
	}
	return ids, docs
}

// OpenSearchIndexer bulk-indexes visitor snapshots for ad hoc analysis.
type OpenSearchIndexer struct {
	client *opensearch.Client
	index  string
	log    *slog.Logger
}

// NewOpenSearchIndexer indexes into index. A nil logger discards.
func NewOpenSearchIndexer(client *opensearch.Client, index string, log *slog.Logger) *OpenSearchIndexer {
	if log == nil {
		log = logger.Discard()
	}
	return &OpenSearchIndexer{client: client, index: index, log: log}
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// DispatchEvent bulk-indexes one document per visitor snapshot.
func (x *OpenSearchIndexer) DispatchEvent(ctx context.Context, e event.LogEvent) error {
	ids, docs := Documents(e.Payload)
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for i, doc := range docs {
		if err := enc.Encode(map[string]any{"index": map[string]string{"_id": ids[i]}}); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
	}

	res, err := x.client.Bulk(&body,
		x.client.Bulk.WithContext(ctx),
		x.client.Bulk.WithIndex(x.index),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndexFailed, err)
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrIndexFailed, err)
	}
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexFailed, res.Status())
	}

	var br bulkResponse
	if err := json.Unmarshal(data, &br); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrIndexFailed, err)
	}
	if br.Errors {
		var errs []error
		for _, item := range br.Items {
			for _, result := range item {
				if result.Error != nil {
					errs = append(errs, fmt.Errorf("%s: %s", result.Error.Type, result.Error.Reason))
				}
			}
		}
		if len(errs) == 0 {
			return fmt.Errorf("%w: bulk request reported errors", ErrIndexFailed)
		}
		return fmt.Errorf("%w: %w", ErrIndexFailed, errors.Join(errs...))
	}

	x.log.DebugContext(ctx, "event snapshots indexed", logger.Count(len(docs)))
	return nil
}
