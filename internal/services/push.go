package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ausflug-backend/internal/metrics"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

const pushTimeout = 10 * time.Second

// Pusher delivers one APNs notification
type Pusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNsOptions configures token-based APNs authentication
type APNsOptions struct {
	KeyPath    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

// NewAPNsClient creates a token-authenticated APNs client
func NewAPNsClient(opts APNsOptions) (*apns2.Client, error) {
	authKey, err := token.AuthKeyFromFile(opts.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}
	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   opts.KeyID,
		TeamID:  opts.TeamID,
	})
	if opts.Production {
		return client.Production(), nil
	}
	return client.Development(), nil
}

// PushNotifier tells excursion authors about new reviews on their excursions.
// Notifications are sent in the background; Wait blocks until they are done.
type PushNotifier struct {
	pusher Pusher
	users  UserStore
	topic  string
	wg     sync.WaitGroup
}

// NewPushNotifier creates a notifier sending through pusher
func NewPushNotifier(pusher Pusher, users UserStore, topic string) *PushNotifier {
	return &PushNotifier{pusher: pusher, users: users, topic: topic}
}

// RatingChanged notifies the excursion author, unless they reviewed it
// themselves. It returns without waiting for APNs.
func (p *PushNotifier) RatingChanged(ctx context.Context, event RatingEvent) {
	if event.AuthorID == "" || event.AuthorID == event.ReviewerID {
		return
	}
	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.notifyAuthor(ctx, event); err != nil {
			log.Warn().Err(err).
				Str("excursion_id", event.ExcursionID).
				Str("author_id", event.AuthorID).
				Msg("Failed to send review notification")
		}
	}()
}

// Wait blocks until every pending notification has been sent or has failed
func (p *PushNotifier) Wait() {
	p.wg.Wait()
}

func (p *PushNotifier) notifyAuthor(ctx context.Context, event RatingEvent) error {
	author, err := p.users.GetByID(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("failed to get author: %w", err)
	}
	if author.PushToken == nil || *author.PushToken == "" {
		return nil
	}

	body := fmt.Sprintf("%s hat %q mit %d Sternen bewertet", event.ReviewerName, event.ExcursionTitle, event.ReviewRating)
	pl := payload.NewPayload().
		AlertTitle("Neue Bewertung").
		AlertBody(body).
		Sound("default").
		Custom("excursion_id", event.ExcursionID).
		Custom("average_rating", event.Rating.Average)

	notification := &apns2.Notification{
		DeviceToken: *author.PushToken,
		Topic:       p.topic,
		Payload:     pl,
		Priority:    apns2.PriorityLow,
	}

	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	res, err := p.pusher.PushWithContext(pushCtx, notification)
	if err != nil {
		metrics.PushNotifications.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to push: %w", err)
	}
	if res.Sent() {
		metrics.PushNotifications.WithLabelValues("sent").Inc()
		log.Debug().Str("apns_id", res.ApnsID).Str("author_id", author.ID).Msg("Review notification sent")
		return nil
	}

	metrics.PushNotifications.WithLabelValues("rejected").Inc()
	if res.Reason == apns2.ReasonBadDeviceToken || res.Reason == apns2.ReasonUnregistered {
		if err := p.users.UpdatePushToken(ctx, author.ID, nil); err != nil {
			log.Warn().Err(err).Str("author_id", author.ID).Msg("Failed to clear stale push token")
		}
	}
	return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
}
