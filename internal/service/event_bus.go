package service

import (
	"context"
	"encoding/json"
	"privacy_edu_backend/internal/model"
	"privacy_edu_backend/internal/repository"
	"privacy_edu_backend/pkg/logger"
	"privacy_edu_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ProgressEventsChannel 前端层订阅的 Redis 频道
const ProgressEventsChannel = "progress.events"

// EventSink 进度事件的接收端。发布是 fire-and-forget 的：
// 台账不依赖投递成功，失败只记日志和指标。
type EventSink interface {
	Publish(event *model.ProgressEvent)
}

// EventBus 把事件落库审计并发布到 Redis
type EventBus struct {
	EventRepo *repository.EventRepository
	Redis     *redis.Client
}

func NewEventBus(eventRepo *repository.EventRepository, rdb *redis.Client) *EventBus {
	return &EventBus{
		EventRepo: eventRepo,
		Redis:     rdb,
	}
}

func (b *EventBus) Publish(event *model.ProgressEvent) {
	if err := b.EventRepo.Create(event); err != nil {
		logger.Log.Error("Failed to persist progress event",
			zap.String("type", string(event.Type)),
			zap.Uint("userId", event.UserID),
			zap.Error(err))
		monitoring.EventPublishFailures.Inc()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		monitoring.EventPublishFailures.Inc()
		return
	}

	if err := b.Redis.Publish(context.Background(), ProgressEventsChannel, payload).Err(); err != nil {
		logger.Log.Warn("Failed to publish progress event to redis",
			zap.String("type", string(event.Type)),
			zap.Error(err))
		monitoring.EventPublishFailures.Inc()
	}
}
