// Package publisher delivers run summaries to downstream consumers. The
// Pub/Sub implementation feeds notification pipelines; the memory
// implementation serves tests and single-shot runs.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// PubSubPublisher pushes run summaries onto a Google Cloud Pub/Sub topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  string
	logger *zap.Logger
}

func fullTopicName(projectID, topicID string) string {
	return fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
}

// NewPubSubPublisher creates a Pub/Sub client and verifies the topic is
// active. It authenticates using Application Default Credentials.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topicName := fullTopicName(projectID, topicID)
	topic, err := client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topicName})
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close pubsub client after topic lookup failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("get pubsub topic %q: %w", topicID, err)
	}
	if topic.State != pubsubpb.Topic_ACTIVE {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close pubsub client after topic state check", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub topic %q in project %q is not active", topicID, projectID)
	}

	return &PubSubPublisher{client: client, topic: topicName, logger: logger}, nil
}

// PublishSummary sends the summary as a JSON message. The send is
// asynchronous; the Pub/Sub client handles batching and retries.
func (p *PubSubPublisher) PublishSummary(ctx context.Context, summary engine.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	pub := p.client.Publisher(p.topic)
	result := pub.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"run_id": summary.RunID,
		},
	})
	_ = result

	p.logger.Debug("run summary published",
		zap.String("run_id", summary.RunID),
		zap.Int("new", summary.New))
	return nil
}

// Close shuts down the underlying client connection.
func (p *PubSubPublisher) Close() error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
