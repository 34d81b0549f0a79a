package kafka

import (
	"context"
	"log/slog"
	"sort"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crisis-signal-etl/internal/config"
	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
)

// Writer produces analyzed posts to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes analyzed posts to the sink topic in a
// single WriteMessages call. Posts are keyed by post id.
func (w *Writer) LoadBatch(ctx context.Context, posts []domain.AnalyzedPost) error {
	if len(posts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(posts))
	for i := range posts {
		msg, err := serializeToMessage(posts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage encodes an AnalyzedPost as a Kafka message with headers
// in sorted key order.
func serializeToMessage(post domain.AnalyzedPost) (kafkago.Message, error) {
	out, err := domain.SerializeAnalyzedPost(post)
	if err != nil {
		return kafkago.Message{}, err
	}
	keys := make([]string, 0, len(out.Headers))
	for k := range out.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(out.Headers[k])})
	}
	return kafkago.Message{
		Key:     out.Key,
		Value:   out.Value,
		Headers: headers,
	}, nil
}
