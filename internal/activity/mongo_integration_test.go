package activity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"dholratri-tickets/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoRecorderIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	client, err := OpenMongo(ctx, fmt.Sprintf("mongodb://%s:%s", host, port.Port()))
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	db := client.Database("dholratri_test")
	rec, err := NewMongoRecorder(ctx, db)
	require.NoError(t, err)

	require.NoError(t, rec.Record(ctx, "admin-1", models.ActionRejectPurchase, map[string]interface{}{"purchaseId": "p-2"}))

	var got models.ActivityLog
	require.NoError(t, db.Collection(collectionName).FindOne(ctx, bson.M{"action": models.ActionRejectPurchase}).Decode(&got))
	assert.Equal(t, "admin-1", got.UserID)
	assert.Equal(t, "p-2", got.Details["purchaseId"])
}
