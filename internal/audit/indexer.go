package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/supportdeskhq/tenantcore/internal/domain"
)

// masterBucket is the index bucket for events without a tenant.
const masterBucket = "master"

// Indexer writes audit events into per-tenant, month-partitioned
// OpenSearch indices.
type Indexer struct {
	client *opensearch.Client
}

func NewIndexer(client *opensearch.Client) *Indexer {
	return &Indexer{client: client}
}

// IndexName partitions events by tenant and month:
// audit_events_<tenant>_<YYYY_MM>.
func IndexName(tenantID string, t time.Time) string {
	bucket := tenantID
	if bucket == "" {
		bucket = masterBucket
	}
	return fmt.Sprintf("audit_events_%s_%s", bucket, t.Format("2006_01"))
}

// IndexPattern matches all of a tenant's audit indices.
func IndexPattern(tenantID string) string {
	bucket := tenantID
	if bucket == "" {
		bucket = masterBucket
	}
	return fmt.Sprintf("audit_events_%s_*", bucket)
}

// Index writes one event.
func (i *Indexer) Index(ctx context.Context, event domain.AuditEvent) error {
	when := event.Timestamp
	if when.IsZero() {
		when = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      IndexName(event.TenantID, when),
		DocumentID: event.ID,
		Body:       strings.NewReader(string(data)),
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index audit event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index audit event: %s", res.String())
	}
	return nil
}

// Search returns a tenant's events of a given type within a time range.
// Used by operator dashboards (legacy-token cutover, bypass review).
func (i *Indexer) Search(ctx context.Context, tenantID string, eventType domain.AuditEventType, from, to time.Time, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	must := []map[string]any{}
	if eventType != "" {
		must = append(must, map[string]any{"term": map[string]any{"type.keyword": string(eventType)}})
	}
	if !from.IsZero() || !to.IsZero() {
		rng := map[string]any{}
		if !from.IsZero() {
			rng["gte"] = from.Format(time.RFC3339)
		}
		if !to.IsZero() {
			rng["lte"] = to.Format(time.RFC3339)
		}
		must = append(must, map[string]any{"range": map[string]any{"timestamp": rng}})
	}

	query := map[string]any{
		"size": limit,
		"sort": []map[string]any{{"timestamp": map[string]any{"order": "desc"}}},
		"query": map[string]any{
			"bool": map[string]any{"must": must},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	req := opensearchapi.SearchRequest{
		Index: []string{IndexPattern(tenantID)},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("search audit events: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search audit events: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source domain.AuditEvent `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	events := make([]domain.AuditEvent, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		events = append(events, hit.Source)
	}
	return events, nil
}
