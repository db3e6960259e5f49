package models

import "time"

// NotificationType categorizes a notification.
type NotificationType string

const (
	NotificationRequestApproved    NotificationType = "request_approved"
	NotificationRequestRejected    NotificationType = "request_rejected"
	NotificationNewRequestForStore NotificationType = "new_request_for_store"
	NotificationAdminAnnouncement  NotificationType = "admin_announcement"
	NotificationStoreApproved      NotificationType = "store_approved"
	NotificationStoreRejected      NotificationType = "store_rejected"
	NotificationURLChangeApproved  NotificationType = "url_change_approved"
	NotificationURLChangeRejected  NotificationType = "url_change_rejected"
	NotificationSystem             NotificationType = "system"
	NotificationGeneral            NotificationType = "general"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationRequestApproved:    {},
	NotificationRequestRejected:    {},
	NotificationNewRequestForStore: {},
	NotificationAdminAnnouncement:  {},
	NotificationStoreApproved:      {},
	NotificationStoreRejected:      {},
	NotificationURLChangeApproved:  {},
	NotificationURLChangeRejected:  {},
	NotificationSystem:             {},
	NotificationGeneral:            {},
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

// Notification is a one-way system message. UserID addresses one user,
// TargetUserType a cohort; both nil means every active user. Each
// recipient owns its own row, so read and delivery state is per row.
type Notification struct {
	ID             int64            `json:"id" db:"id"`
	Title          string           `json:"title" db:"title"`
	Message        string           `json:"message" db:"message"`
	Type           NotificationType `json:"type" db:"type"`
	UserID         *int64           `json:"userId,omitempty" db:"user_id"`
	TargetUserType *UserType        `json:"targetUserType,omitempty" db:"target_user_type"`
	RequestID      *int64           `json:"requestId,omitempty" db:"request_id"`
	IsRead         bool             `json:"isRead" db:"is_read"`
	ReadAt         *time.Time       `json:"readAt,omitempty" db:"read_at"`
	IsFromAdmin    bool             `json:"isFromAdmin" db:"is_from_admin"`
	AdminID        *int64           `json:"adminId,omitempty" db:"admin_id"`
	EmailSent      bool             `json:"emailSent" db:"email_sent"`
	EmailSentAt    *time.Time       `json:"emailSentAt,omitempty" db:"email_sent_at"`
	WhatsAppSent   bool             `json:"whatsAppSent" db:"whatsapp_sent"`
	WhatsAppSentAt *time.Time       `json:"whatsAppSentAt,omitempty" db:"whatsapp_sent_at"`
	Link           *string          `json:"link,omitempty" db:"link"`
	Icon           *string          `json:"icon,omitempty" db:"icon"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
}

// CopyFor returns an unsaved copy of n addressed to userID, with fresh
// read and delivery state.
func (n *Notification) CopyFor(userID int64) *Notification {
	uid := userID
	return &Notification{
		Title:          n.Title,
		Message:        n.Message,
		Type:           n.Type,
		UserID:         &uid,
		TargetUserType: n.TargetUserType,
		RequestID:      n.RequestID,
		IsFromAdmin:    n.IsFromAdmin,
		AdminID:        n.AdminID,
		Link:           n.Link,
		Icon:           n.Icon,
		CreatedAt:      n.CreatedAt,
	}
}
