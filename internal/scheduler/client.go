package scheduler

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"time"

	"leadbot_backend/internal/conversation"
	"leadbot_backend/platform/config"
	"leadbot_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	partialSaveMaxRetry = 5
	partialSaveTimeout  = 30 * time.Second
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, errors.New("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  cmp.Or(cfg.GetAsynqQueueName(), defaultQueue),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueuePartialLeadSave(ctx context.Context, req conversation.RequirementRecord) error {
	task, err := NewPartialLeadSaveTask(partialPayloadFromRecord(req))
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(partialSaveMaxRetry),
		asynq.Timeout(partialSaveTimeout),
		asynq.TaskID(partialTaskID(req)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// partialTaskID identifies one idle snapshot, so a replayed snapshot is not
// queued twice while the first is still pending.
func partialTaskID(req conversation.RequirementRecord) string {
	return "partial:" + req.ConversationID.String() + ":" + strconv.FormatInt(req.At.UnixMilli(), 10)
}

// PartialEnqueuer queues a partial requirement write.
type PartialEnqueuer interface {
	EnqueuePartialLeadSave(ctx context.Context, req conversation.RequirementRecord) error
}

// QueuedPartialSaver hands idle snapshots to the worker. When redis is not
// reachable the snapshot is written directly so it is never lost.
type QueuedPartialSaver struct {
	queue    PartialEnqueuer
	fallback conversation.PartialSaver
	log      *logger.Logger
}

var _ conversation.PartialSaver = (*QueuedPartialSaver)(nil)

func NewQueuedPartialSaver(queue PartialEnqueuer, fallback conversation.PartialSaver, log *logger.Logger) *QueuedPartialSaver {
	return &QueuedPartialSaver{queue: queue, fallback: fallback, log: log}
}

func (s *QueuedPartialSaver) SavePartial(ctx context.Context, req conversation.RequirementRecord) error {
	req.Status = conversation.RequirementPartial
	err := s.queue.EnqueuePartialLeadSave(ctx, req)
	if err == nil {
		return nil
	}
	if s.fallback == nil {
		return fmt.Errorf("enqueue partial lead save: %w", err)
	}
	s.log.Warn("enqueue partial lead save failed, writing directly", "conversationId", req.ConversationID, "error", err)
	return s.fallback.SavePartial(ctx, req)
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
