//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/crisis-signal-etl/internal/adapter/nlp"
	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/observability"
	"github.com/couchcryptid/crisis-signal-etl/internal/pipeline"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("crisis-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer func() { _ = conn.Close() }()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer func() { _ = ctrlConn.Close() }()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic %s", topic)
}

// loadMockData reads the raw post fixture shared with the pipeline tests.
func loadMockData(t *testing.T) []domain.RawPost {
	t.Helper()

	data, err := os.ReadFile("../../data/mock/social_posts.json")
	require.NoError(t, err, "read mock data")

	var posts []domain.RawPost
	require.NoError(t, json.Unmarshal(data, &posts), "decode mock data")
	require.NotEmpty(t, posts)
	return posts
}

// newTransformer builds the offline analysis chain with a frozen clock.
func newTransformer(t *testing.T, metrics *observability.Metrics) *pipeline.PostTransformer {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	g := domain.NewUSGazetteer()
	analyzer := domain.NewAnalyzer(
		domain.NewRiskClassifier(nlp.NewVader(), nlp.NewLexicon()),
		domain.NewLocationExtractor(g, nil),
		g, nil,
		discardLogger(),
	)
	return pipeline.NewTransformer(analyzer, metrics, discardLogger())
}
