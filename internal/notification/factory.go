package notification

import (
	"context"
	"fmt"

	"souq/server/internal/models"
)

// NotifyRequestDecision tells a buyer whether their request was approved
// and delivers it on every channel.
func (s *Service) NotifyRequestDecision(ctx context.Context, userID, requestID int64, approved bool) (*models.Notification, Report, error) {
	req := CreateRequest{
		Type:      models.NotificationRequestRejected,
		Title:     "Your request was rejected",
		Message:   fmt.Sprintf("Request #%d was not approved. Please review it and submit again.", requestID),
		UserID:    &userID,
		RequestID: &requestID,
		Link:      requestLink(requestID),
	}
	if approved {
		req.Type = models.NotificationRequestApproved
		req.Title = "Your request was approved"
		req.Message = fmt.Sprintf("Request #%d is now visible to stores.", requestID)
	}

	return s.CreateAndDispatch(ctx, req, Channels{InApp: true, Email: true, WhatsApp: true})
}

// NotifyStoresOfNewRequest tells every active seller about a new request.
func (s *Service) NotifyStoresOfNewRequest(ctx context.Context, requestID int64, title string) (*models.Notification, Report, error) {
	seller := models.UserTypeSeller
	req := CreateRequest{
		Type:           models.NotificationNewRequestForStore,
		Title:          "New request",
		Message:        fmt.Sprintf("A buyer is looking for: %s", title),
		TargetUserType: &seller,
		RequestID:      &requestID,
		Link:           requestLink(requestID),
	}

	return s.CreateAndDispatch(ctx, req, Channels{InApp: true, WhatsApp: true})
}

// CreateAndDispatch creates a notification and delivers it right away.
func (s *Service) CreateAndDispatch(ctx context.Context, req CreateRequest, ch Channels) (*models.Notification, Report, error) {
	n, err := s.CreateNotification(ctx, req)
	if err != nil {
		return nil, Report{}, err
	}
	report, err := s.Dispatch(ctx, n, ch)
	return n, report, err
}

func requestLink(requestID int64) *string {
	link := fmt.Sprintf("/requests/%d", requestID)
	return &link
}
