package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"mavencrawler/shared/infrastructure/config"
	"mavencrawler/shared/infrastructure/observability"
	"mavencrawler/shared/infrastructure/observability/adapters/noop"
	"mavencrawler/shared/infrastructure/repository/repositorytest"
)

// Runs the merge suite against the real filter and update pipeline, which
// need MongoDB 5.2 or later for $sortArray. Point
// MAVENCRAWLER_TEST_MONGODB_URI at a disposable server.
func TestMetadataMergeOnMongo(t *testing.T) {
	uri := os.Getenv("MAVENCRAWLER_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("MAVENCRAWLER_TEST_MONGODB_URI not set")
	}

	ctx := context.Background()
	obs := observability.New(&config.Config{ServiceName: "test"}, noop.Logger{}, noop.Metrics{})
	repos, err := Connect(ctx, &config.MongoConfig{URI: uri, Database: "mavencrawler_test"}, obs)
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close(ctx) })

	repositorytest.RunMetadataMerge(t, repos.Metadata())
}
