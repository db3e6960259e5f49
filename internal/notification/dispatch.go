package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"souq/server/internal/email"
	"souq/server/internal/identity"
	"souq/server/internal/logger"
	"souq/server/internal/models"
	"souq/server/internal/repository"
	ws "souq/server/internal/websocket"
	"souq/server/internal/whatsapp"

	"github.com/rs/zerolog"
)

const (
	ChannelInApp    = "in_app"
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// Channels selects the delivery paths of one dispatch.
type Channels struct {
	InApp    bool `json:"inApp"`
	Email    bool `json:"email"`
	WhatsApp bool `json:"whatsApp"`
}

// Report summarizes a dispatch: how many recipients were resolved and how
// many deliveries succeeded per channel.
type Report struct {
	Recipients int `json:"recipients"`
	InApp      int `json:"inApp"`
	Emails     int `json:"emails"`
	WhatsApps  int `json:"whatsApps"`
}

type delivery struct {
	n    *models.Notification
	user models.User
}

// Dispatch delivers n to its audience. The audience is n.UserID if set,
// else the active users of n.TargetUserType, else every active user.
//
// With several recipients each one gets its own row and n stays behind as
// an unaddressed template. A single recipient of a cohort or broadcast is
// assigned n itself. Recipients are served one at a time with the
// configured delay between them, and one channel failing never stops
// another. An unknown UserID is an empty audience. Only resolving the
// audience or persisting the rows can fail the call. Cancelling ctx stops
// before the next recipient.
func (s *Service) Dispatch(ctx context.Context, n *models.Notification, ch Channels) (Report, error) {
	log := logger.Ctx(ctx).With().Int64(logger.FieldNotificationID, n.ID).Logger()

	recipients, err := s.audience(ctx, n)
	if err != nil {
		return Report{}, fmt.Errorf("resolve audience: %w", err)
	}
	report := Report{Recipients: len(recipients)}
	if len(recipients) == 0 {
		log.Warn().Msg("notification has no recipients")
		return report, nil
	}

	deliveries, err := s.materialize(ctx, n, recipients)
	if err != nil {
		return report, err
	}

	for i, d := range deliveries {
		if i > 0 && !s.wait(ctx) {
			log.Warn().Int("delivered", i).Int("remaining", len(deliveries)-i).Msg("dispatch cancelled")
			return report, ctx.Err()
		}
		s.deliver(ctx, log, d, ch, &report)
	}

	log.Info().
		Int("recipients", report.Recipients).
		Int("in_app", report.InApp).
		Int("emails", report.Emails).
		Int("whatsapps", report.WhatsApps).
		Msg("notification dispatched")
	return report, nil
}

func (s *Service) audience(ctx context.Context, n *models.Notification) ([]models.User, error) {
	switch {
	case n.UserID != nil:
		u, err := s.users.FindByID(ctx, *n.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []models.User{*u}, nil
	case n.TargetUserType != nil:
		return s.users.ListActiveByType(ctx, *n.TargetUserType)
	default:
		return s.users.ListActive(ctx)
	}
}

func (s *Service) materialize(ctx context.Context, n *models.Notification, recipients []models.User) ([]delivery, error) {
	if len(recipients) == 1 {
		u := recipients[0]
		if n.UserID == nil {
			if err := s.store.AssignRecipient(ctx, n.ID, u.ID); err != nil {
				return nil, fmt.Errorf("assign recipient: %w", err)
			}
			id := u.ID
			n.UserID = &id
		}
		return []delivery{{n: n, user: u}}, nil
	}

	copies := make([]*models.Notification, 0, len(recipients))
	deliveries := make([]delivery, 0, len(recipients))
	for _, u := range recipients {
		c := n.CopyFor(u.ID)
		copies = append(copies, c)
		deliveries = append(deliveries, delivery{n: c, user: u})
	}
	if err := s.store.CreateBatch(ctx, copies); err != nil {
		return nil, fmt.Errorf("fan out notification: %w", err)
	}
	return deliveries, nil
}

// wait sleeps for the dispatch delay and reports false if ctx ended first.
func (s *Service) wait(ctx context.Context) bool {
	if s.delay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Service) deliver(ctx context.Context, log zerolog.Logger, d delivery, ch Channels, report *Report) {
	rlog := log.With().
		Int64(logger.FieldUserID, d.user.ID).
		Int64("row_id", d.n.ID).
		Logger()

	// users without a phone have no hub identity
	key := s.norm.Normalize(d.user.Phone)
	if ch.InApp && s.hub != nil && !identity.IsBlank(key) {
		if s.run(rlog, ChannelInApp, func() error { return s.pushInApp(ctx, key, d) }) {
			report.InApp++
		}
	}

	if ch.Email && s.mailer != nil && strings.TrimSpace(d.user.Email) != "" {
		if s.run(rlog, ChannelEmail, func() error { return s.sendEmail(ctx, d) }) {
			report.Emails++
			s.stamp(ctx, rlog, ChannelEmail, d.n)
		}
	}

	if ch.WhatsApp && s.messenger != nil && strings.TrimSpace(d.user.Phone) != "" {
		if s.run(rlog, ChannelWhatsApp, func() error { return s.sendWhatsApp(ctx, d) }) {
			report.WhatsApps++
			s.stamp(ctx, rlog, ChannelWhatsApp, d.n)
		}
	}
}

// run calls fn and turns a panic into a logged failure.
func (s *Service) run(log zerolog.Logger, channel string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str(logger.FieldChannel, channel).Interface("panic", r).Msg("delivery panicked")
			ok = false
		}
	}()

	if err := fn(); err != nil {
		log.Warn().Err(err).Str(logger.FieldChannel, channel).Msg("delivery failed")
		return false
	}
	return true
}

func (s *Service) pushInApp(ctx context.Context, key string, d delivery) error {
	s.hub.PushToUser(ctx, key, ws.NewMessage(ws.EventReceiveNotification, ws.NotificationPayload{
		ID:        d.n.ID,
		Title:     d.n.Title,
		Message:   d.n.Message,
		Type:      string(d.n.Type),
		Link:      d.n.Link,
		Icon:      d.n.Icon,
		CreatedAt: d.n.CreatedAt,
	}))
	return nil
}

func (s *Service) sendEmail(ctx context.Context, d delivery) error {
	body, err := email.Render(email.Content{
		Title:   d.n.Title,
		Message: d.n.Message,
		Link:    deref(d.n.Link),
	})
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, d.user.Email, d.n.Title, body)
}

func (s *Service) sendWhatsApp(ctx context.Context, d delivery) error {
	return s.messenger.Send(ctx, d.user.Phone, whatsapp.FormatText(d.n.Title, d.n.Message, deref(d.n.Link)))
}

// stamp records a successful delivery on the row. A failed stamp is only
// logged, the message already went out.
func (s *Service) stamp(ctx context.Context, log zerolog.Logger, channel string, n *models.Notification) {
	at := s.now()
	var err error
	switch channel {
	case ChannelEmail:
		if err = s.store.MarkEmailSent(ctx, n.ID, at); err == nil {
			n.EmailSent, n.EmailSentAt = true, &at
		}
	case ChannelWhatsApp:
		if err = s.store.MarkWhatsAppSent(ctx, n.ID, at); err == nil {
			n.WhatsAppSent, n.WhatsAppSentAt = true, &at
		}
	}
	if err != nil {
		log.Error().Err(err).Str(logger.FieldChannel, channel).Msg("failed to record delivery")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
