// Package realtime fans selection activity out to tenant dashboards.
// Events travel through redis pub/sub so every server instance sees
// them, and reach browsers over a websocket feed per gallery.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/selection"
)

func channelFor(tenantID, galleryID uuid.UUID) string {
	return fmt.Sprintf("activity:%s:%s", tenantID, galleryID)
}

// Publisher pushes selection events onto the gallery's redis channel.
// It satisfies the engine's best-effort contract: failures are logged
// and swallowed, never surfaced to the client operation.
type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger}
}

func (p *Publisher) PublishActivity(ctx context.Context, tenantID, galleryID uuid.UUID, event selection.Event) {
	if p.rdb == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("marshal activity event", zap.Error(err))
		return
	}

	if err := p.rdb.Publish(ctx, channelFor(tenantID, galleryID), payload).Err(); err != nil {
		p.logger.Warn("publish activity event",
			zap.String("gallery_id", galleryID.String()),
			zap.Error(err))
	}
}
