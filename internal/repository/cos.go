package repository

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tencentyun/cos-go-sdk-v5"

	"github.com/zecapture/graph/pkg/config"
	"github.com/zecapture/graph/pkg/model"
	"github.com/zecapture/graph/pkg/writer"
)

// AuditExporter uploads a graph's audit record, JSON-encoded, to object
// storage. This is a debug/audit artifact, structurally unlike the
// excluded DOT-shaped graph export: it carries lifecycle metadata
// (command/subgraph counts, fork policy, outcome), never the graph's
// closures or wait/signal structure.
type AuditExporter struct {
	client *cos.Client
	bucket string
	region string
	domain string
	scheme string
	jw     *writer.JSONWriter[*model.GraphAuditRecord]
}

// NewAuditExporter builds an AuditExporter from storage config. Returns
// nil, nil if cfg.Type is not "cos" (callers should treat a nil exporter
// as "exporting is disabled").
func NewAuditExporter(cfg config.StorageConfig) (*AuditExporter, error) {
	if cfg.Type != "cos" {
		return nil, nil
	}
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("bucket and region are required for COS storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("credentials are required for COS storage")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	bucketURL, err := url.Parse(fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}
	serviceURL, err := url.Parse(fmt.Sprintf("%s://cos.%s.%s", scheme, cfg.Region, domain))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{
		BucketURL:  bucketURL,
		ServiceURL: serviceURL,
	}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &AuditExporter{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		domain: domain,
		scheme: scheme,
		jw:     writer.NewPrettyJSONWriter[*model.GraphAuditRecord](),
	}, nil
}

// Export JSON-encodes record and uploads it under
// "graphs/<graph_uuid>.json".
func (e *AuditExporter) Export(ctx context.Context, record *model.GraphAuditRecord) error {
	var buf bytes.Buffer
	if err := e.jw.Write(record, &buf); err != nil {
		return fmt.Errorf("failed to encode audit record: %w", err)
	}

	key := e.keyFor(record.GraphUUID)
	if _, err := e.client.Object.Put(ctx, key, &buf, nil); err != nil {
		return fmt.Errorf("failed to upload audit record for graph %s: %w", record.GraphUUID, err)
	}
	return nil
}

// URL returns the public URL an exported record is reachable at.
func (e *AuditExporter) URL(graphUUID string) string {
	return fmt.Sprintf("%s://%s.cos.%s.%s/%s", e.scheme, e.bucket, e.region, e.domain, e.keyFor(graphUUID))
}

func (e *AuditExporter) keyFor(graphUUID string) string {
	return fmt.Sprintf("graphs/%s.json", graphUUID)
}
