package job

import (
	"context"
	"log"
	"time"

	"securebank/internal/config"
	"securebank/internal/repository"

	"gorm.io/gorm"
)

// OutboxCleanupJob purges delivered outbox rows past the retention window.
// The ledger itself is never touched; only the transient message queue is
// trimmed.
type OutboxCleanupJob struct {
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	stopCh     chan struct{}
	interval   time.Duration
}

func NewOutboxCleanupJob(db *gorm.DB, cfg *config.Config) *OutboxCleanupJob {
	return &OutboxCleanupJob{
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		interval:   time.Hour,
	}
}

func (j *OutboxCleanupJob) Start(ctx context.Context) {
	log.Println("[OutboxCleanup] started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxCleanup] context cancelled, stopping")
			return
		case <-j.stopCh:
			log.Println("[OutboxCleanup] stopped")
			return
		case <-ticker.C:
			j.purge(ctx)
		}
	}
}

func (j *OutboxCleanupJob) Stop() {
	close(j.stopCh)
}

func (j *OutboxCleanupJob) purge(ctx context.Context) {
	retention := j.cfg.Business.OutboxRetentionDays
	if retention <= 0 {
		retention = 7
	}
	cutoff := time.Now().AddDate(0, 0, -retention)

	deleted, err := j.outboxRepo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[OutboxCleanup] purge failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[OutboxCleanup] purged %d delivered messages", deleted)
	}
}
