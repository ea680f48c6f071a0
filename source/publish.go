package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// ChunkStreamName is the JetStream stream holding ingested chunks.
	ChunkStreamName = "RAGINGEST"

	// chunkSubjectPrefix roots all chunk publish subjects.
	chunkSubjectPrefix = "index.ingest.chunk"
)

// ChunkMessage is the wire format for one published chunk.
type ChunkMessage struct {
	SourceID   string         `json:"source_id"`
	ChunkIndex int            `json:"chunk_index"`
	ChunkTotal int            `json:"chunk_total"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IngestedAt time.Time      `json:"ingested_at"`
}

// Publisher writes chunk messages to JetStream for downstream indexing. A
// nil *Publisher is valid and publishes nothing, so pipelines without a
// message bus degrade gracefully.
type Publisher struct {
	js     nats.JetStreamContext
	logger *slog.Logger
}

// NewPublisher creates a chunk publisher on an existing connection, creating
// the stream when absent. A nil connection yields a nil publisher.
func NewPublisher(nc *nats.Conn, logger *slog.Logger) (*Publisher, error) {
	if nc == nil {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(ChunkStreamName); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return nil, fmt.Errorf("stream info: %w", err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      ChunkStreamName,
			Subjects:  []string{chunkSubjectPrefix + ".>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
		})
		if err != nil {
			return nil, fmt.Errorf("create stream: %w", err)
		}
		logger.Info("created chunk stream", slog.String("stream", ChunkStreamName))
	}

	return &Publisher{js: js, logger: logger}, nil
}

// PublishChunks publishes one message per document under the source's
// subject. Publishing stops at the first error so redelivery starts from a
// known index.
func (p *Publisher) PublishChunks(ctx context.Context, sourceID string, docs []Document) error {
	if p == nil {
		return nil
	}

	subject := chunkSubjectPrefix + "." + sourceID
	now := time.Now()

	for i, doc := range docs {
		msg := ChunkMessage{
			SourceID:   sourceID,
			ChunkIndex: i,
			ChunkTotal: len(docs),
			Content:    doc.PageContent,
			Metadata:   doc.Metadata,
			IngestedAt: now,
		}

		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal chunk %d: %w", i, err)
		}

		if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
			return fmt.Errorf("publish chunk %d of %d: %w", i, len(docs), err)
		}
	}

	p.logger.Debug("published chunks",
		slog.String("source_id", sourceID),
		slog.Int("count", len(docs)))
	return nil
}
