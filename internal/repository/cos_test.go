package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zecapture/graph/pkg/config"
)

func TestNewAuditExporter_DisabledWhenNotCOS(t *testing.T) {
	exporter, err := NewAuditExporter(config.StorageConfig{Type: "local"})
	require.NoError(t, err)
	assert.Nil(t, exporter)
}

func TestNewAuditExporter_RequiresBucketAndRegion(t *testing.T) {
	_, err := NewAuditExporter(config.StorageConfig{
		Type:      "cos",
		SecretID:  "id",
		SecretKey: "key",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket and region")
}

func TestNewAuditExporter_RequiresCredentials(t *testing.T) {
	_, err := NewAuditExporter(config.StorageConfig{
		Type:   "cos",
		Bucket: "my-bucket",
		Region: "ap-guangzhou",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

func TestNewAuditExporter_DefaultsDomainAndScheme(t *testing.T) {
	exporter, err := NewAuditExporter(config.StorageConfig{
		Type:      "cos",
		Bucket:    "my-bucket",
		Region:    "ap-guangzhou",
		SecretID:  "id",
		SecretKey: "key",
	})
	require.NoError(t, err)
	require.NotNil(t, exporter)
	assert.Equal(t, "https://my-bucket.cos.ap-guangzhou.myqcloud.com/graphs/g-1.json", exporter.URL("g-1"))
}

func TestNewAuditExporter_HonorsCustomDomainAndScheme(t *testing.T) {
	exporter, err := NewAuditExporter(config.StorageConfig{
		Type:      "cos",
		Bucket:    "my-bucket",
		Region:    "ap-guangzhou",
		SecretID:  "id",
		SecretKey: "key",
		Domain:    "example.com",
		Scheme:    "http",
	})
	require.NoError(t, err)
	require.NotNil(t, exporter)
	assert.Equal(t, "http://my-bucket.cos.ap-guangzhou.example.com/graphs/g-2.json", exporter.URL("g-2"))
}

func TestAuditExporter_KeyFor(t *testing.T) {
	exporter, err := NewAuditExporter(config.StorageConfig{
		Type:      "cos",
		Bucket:    "my-bucket",
		Region:    "ap-guangzhou",
		SecretID:  "id",
		SecretKey: "key",
	})
	require.NoError(t, err)
	assert.Equal(t, "graphs/abc-123.json", exporter.keyFor("abc-123"))
}
