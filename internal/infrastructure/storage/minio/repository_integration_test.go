//go:build integration

package minio_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/storage/minio"
	"github.com/turtacn/OpportunityRadar/internal/testutil"
	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

const bucket = "radar-it"

func startMinIO(t *testing.T) *minio.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:RELEASE.2024-01-16T16-07-38Z",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "radar",
				"MINIO_ROOT_PASSWORD": "radar-secret",
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	client, err := minio.NewClient(minio.Config{
		Endpoint:        endpoint,
		AccessKeyID:     "radar",
		SecretAccessKey: "radar-secret",
		CreateBucket:    true,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestObjectStore_RoundTrip(t *testing.T) {
	client := startMinIO(t)
	ctx := context.Background()

	require.NoError(t, client.EnsureBucket(ctx, bucket))
	for name, body := range testutil.SampleCSV() {
		require.NoError(t, client.Put(ctx, bucket, "inputs/"+name, strings.NewReader(body), int64(len(body)), "text/csv"))
	}

	tables, err := minio.NewSource(client, bucket, "inputs").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleTables(), *tables)

	reader := minio.NewArtifactReader(client, bucket, "out/opportunities.csv")
	_, err = reader.Read(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactNotFound))

	price := 0.5
	rows := opportunity.Opportunities{
		{Category: "Kitchen", SearchVolume: 3, UnmetSignal: 1, PriceSensitivity: &price, MissingFeatures: "wifi", OpportunityScore: 0.8, RecommendedActions: "Add features: wifi"},
		{Category: "Home", SearchVolume: 1, OpportunityScore: 0.1},
	}
	sink := minio.NewSink(client, bucket, "out/opportunities.csv")
	require.NoError(t, sink.Write(ctx, rows))
	assert.Equal(t, "s3://"+bucket+"/out/opportunities.csv", sink.Destination())

	got, err := reader.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	assert.NoError(t, client.HealthCheck(ctx))
}
