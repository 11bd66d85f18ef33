package service

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"securebank/internal/config"
	"securebank/internal/model"
	"securebank/internal/repository"

	"gorm.io/gorm"
)

// NotificationService is the notification sink and its read side. Emit
// persists the notification for the user's inbox and writes an outbox row;
// the outbox sender publishes to Kafka so connected clients get a push.
// Both writes are best-effort: a failure is logged and dropped, never
// propagated into the transfer that produced the event.
type NotificationService struct {
	cfg              *config.Config
	notificationRepo *repository.NotificationRepository
	outboxRepo       *repository.OutboxRepository
}

func NewNotificationService(db *gorm.DB, cfg *config.Config) *NotificationService {
	return &NotificationService{
		cfg:              cfg,
		notificationRepo: repository.NewNotificationRepository(db),
		outboxRepo:       repository.NewOutboxRepository(db),
	}
}

func (s *NotificationService) Emit(ownerID int64, event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notification := &model.Notification{
		UserID:  ownerID,
		Title:   event.Title,
		Message: event.Message,
		Type:    model.NotificationTypeTransfer,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		log.Printf("[NotificationService] failed to store notification for user %d: %v", ownerID, err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"user_id": ownerID,
		"type":    event.Type,
		"title":   event.Title,
		"message": event.Message,
		"amount":  event.Amount,
		"sent_at": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("[NotificationService] failed to encode event for user %d: %v", ownerID, err)
		return
	}

	outboxMsg := &model.OutboxMessage{
		MessageKey: strconv.FormatInt(ownerID, 10),
		Topic:      s.cfg.Kafka.Topic.Notifications,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, nil, outboxMsg); err != nil {
		log.Printf("[NotificationService] failed to enqueue event for user %d: %v", ownerID, err)
	}
}

func (s *NotificationService) List(ctx context.Context, userID int64) ([]*model.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID, 20)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID int64) error {
	return s.notificationRepo.MarkRead(ctx, id, userID)
}
