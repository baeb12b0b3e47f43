package services

import (
	"context"
	"errors"
	"log"

	"github.com/truckflow/dispatch-backend/internal/models"
	"gorm.io/gorm"
)

// NotificationService persists notifications and delivers them over FCM and
// the websocket hub. It implements the reconciler's Notifier interface: one
// call, one recipient, so delivery failures stay isolated per recipient.
type NotificationService struct {
	db  *gorm.DB
	hub *Hub
}

// NewNotificationService creates a notification service
func NewNotificationService(db *gorm.DB, hub *Hub) *NotificationService {
	return &NotificationService{db: db, hub: hub}
}

// Send persists the notification and pushes it out. A failed persist is
// returned to the caller; push and websocket failures are logged only, since
// the stored record remains the source of truth.
func (s *NotificationService) Send(ctx context.Context, n models.Notification) error {
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}

	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.SendNotification(n)
	}

	if n.RecipientID == nil {
		// Admin feed entries go to the admins topic rather than a token
		payload := PushPayload{
			Title:    n.Title,
			Body:     n.Body,
			Priority: n.Priority,
			Data: map[string]interface{}{
				"type":       n.Type,
				"dispatchId": n.DispatchID,
			},
		}
		if err := SendTopicPush(ctx, "admins", payload); err != nil {
			log.Printf("Failed to push admin notification %d: %v", n.ID, err)
		}
		return nil
	}

	if err := s.pushToRecipient(ctx, n); err != nil {
		log.Printf("Failed to push notification %d to user %d: %v", n.ID, *n.RecipientID, err)
	}
	return nil
}

func (s *NotificationService) pushToRecipient(ctx context.Context, n models.Notification) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, *n.RecipientID).Error; err != nil {
		return err
	}
	if user.FCMToken == "" {
		return nil
	}

	if !s.pushAllowed(ctx, user.ID, n.Type) {
		return nil
	}

	payload := PushPayload{
		Title:    n.Title,
		Body:     n.Body,
		Priority: n.Priority,
		Data: map[string]interface{}{
			"type":       n.Type,
			"dispatchId": n.DispatchID,
			"driverId":   n.DriverID,
		},
	}
	return SendPushToToken(ctx, user.FCMToken, payload)
}

// pushAllowed consults the user's notification preferences. Missing
// preferences default to allowed.
func (s *NotificationService) pushAllowed(ctx context.Context, userID uint, ntype string) bool {
	var prefs models.NotificationPreference
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load notification preferences for user %d: %v", userID, err)
		}
		return true
	}

	if !prefs.PushEnabled {
		return false
	}

	switch ntype {
	case models.NotificationDriverAssigned:
		return prefs.AssignmentAlerts
	case models.NotificationBroadcast:
		return prefs.BroadcastMessages
	default:
		return prefs.DispatchStatusAlerts
	}
}
