package job

import (
	"context"
	"log"
	"time"

	"securebank/internal/config"
	"securebank/internal/infrastructure/lock"
	"securebank/internal/infrastructure/mq"
	"securebank/internal/model"
	"securebank/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxSender drains pending outbox rows to Kafka. Delivery is at-least-
// once: a message only becomes SENT after the broker acknowledges it, and
// after too many failed attempts it is parked as FAILED. A Redis lock
// keeps multiple server instances from draining the same batch.
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	rdb        *redis.Client
	cfg        *config.Config
	instanceID string
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		rdb:        rdb,
		cfg:        cfg,
		instanceID: uuid.NewString(),
		stopCh:     make(chan struct{}),
		interval:   100 * time.Millisecond,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] context cancelled, stopping")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] stopped")
			return
		case <-ticker.C:
			s.drainOnce(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) drainOnce(ctx context.Context) {
	drainLock := lock.NewOutboxDrainLock(s.rdb, s.instanceID)
	acquired, err := drainLock.TryLock(ctx)
	if err != nil {
		log.Printf("[OutboxSender] drain lock error: %v", err)
		return
	}
	if !acquired {
		// another instance is draining
		return
	}
	defer drainLock.Unlock(ctx)

	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] failed to load pending messages: %v", err)
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		if updateErr := s.outboxRepo.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); updateErr != nil {
			log.Printf("[OutboxSender] failed to mark message sent: id=%d, err=%v", msg.ID, updateErr)
		}
		return
	}

	log.Printf("[OutboxSender] send failed: id=%d, err=%v", msg.ID, err)

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		log.Printf("[OutboxSender] failed to bump retry count: id=%d, err=%v", msg.ID, err)
	}

	if msg.RetryCount+1 >= s.cfg.Business.MaxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			log.Printf("[OutboxSender] failed to mark message failed: id=%d, err=%v", msg.ID, err)
		} else {
			log.Printf("[OutboxSender] message exceeded max retries, parked as failed: id=%d", msg.ID)
		}
	}
}
