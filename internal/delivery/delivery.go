// Package delivery sends replies through the messaging gateway: single sends
// with a randomized humanized delay, and sequential rate-limited broadcasts.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/coachbotai/coachbot/internal/contacts"
	"github.com/coachbotai/coachbot/internal/gateway"
	"github.com/coachbotai/coachbot/internal/messages"
)

// MessageStore persists outbound messages.
type MessageStore interface {
	Create(ctx context.Context, req messages.CreateRequest) (messages.Message, error)
}

// ContactStore looks up broadcast recipients and keeps per-contact message
// counters current.
type ContactStore interface {
	GetByID(ctx context.Context, id string) (contacts.Contact, error)
	RecordMessage(ctx context.Context, contactID string) error
}

type Scheduler struct {
	sender   gateway.Sender
	store    MessageStore
	contacts ContactStore
	logger   *slog.Logger
	intn     func(n int) int
	// broadcastEvery paces sequential broadcast sends.
	broadcastEvery time.Duration
}

func NewScheduler(log *slog.Logger, sender gateway.Sender, store MessageStore, contactStore ContactStore) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		sender:         sender,
		store:          store,
		contacts:       contactStore,
		logger:         log.With(slog.String("service", "delivery")),
		intn:           rand.Intn,
		broadcastEvery: time.Second,
	}
}

// delayFor draws a uniform integer number of seconds in [min, max]. Callers
// validate the range at config time; a degenerate range still behaves.
func (s *Scheduler) delayFor(min, max int) time.Duration {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return time.Duration(min+s.intn(max-min+1)) * time.Second
}

// Deliver waits the humanized delay, sends the text to the contact's address,
// and persists the outbound message with the gateway's message id. The wait
// is cooperative: ctx cancellation abandons the send.
func (s *Scheduler) Deliver(ctx context.Context, contact contacts.Contact, text string, delayMin, delayMax int) (messages.Message, error) {
	delay := s.delayFor(delayMin, delayMax)
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return messages.Message{}, ctx.Err()
		case <-timer.C:
		}
	}

	sid, err := s.sender.Send(gateway.FormatOutbound(contact.PhoneNumber), text)
	if err != nil {
		return messages.Message{}, fmt.Errorf("send to %s: %w", contact.PhoneNumber, err)
	}

	msg, err := s.store.Create(ctx, messages.CreateRequest{
		ContactID:        contact.ID,
		Content:          text,
		MessageType:      messages.TypeText,
		Direction:        messages.DirectionOutgoing,
		GatewayMessageID: sid,
	})
	if err != nil {
		// Sent but not recorded. Surface the store error; the reply is
		// already on the wire.
		return messages.Message{}, fmt.Errorf("persist outbound message: %w", err)
	}
	if err := s.contacts.RecordMessage(ctx, contact.ID); err != nil {
		s.logger.Warn("contact counter bump failed",
			slog.String("contact_id", contact.ID), slog.Any("error", err))
	}
	s.logger.Info("message delivered",
		slog.String("contact_id", contact.ID),
		slog.String("gateway_message_id", sid),
		slog.Duration("delay", delay))
	return msg, nil
}

// BroadcastResult tallies a broadcast run. Errors holds one entry per skipped
// or failed recipient.
type BroadcastResult struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// Broadcast sends text to each contact in turn, paced to one send per second.
// Unknown and non-active contacts are skipped and recorded; a failure for one
// recipient never aborts the rest of the batch.
func (s *Scheduler) Broadcast(ctx context.Context, contactIDs []string, text string) (BroadcastResult, error) {
	limiter := rate.NewLimiter(rate.Every(s.broadcastEvery), 1)
	result := BroadcastResult{Errors: []string{}}

	for _, id := range contactIDs {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		contact, err := s.contacts.GetByID(ctx, id)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("contact %s: %v", id, err))
			continue
		}
		if contact.Status != contacts.StatusActive {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("contact %s: status %s, skipped", id, contact.Status))
			continue
		}

		if _, err := s.Deliver(ctx, contact, text, 0, 0); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("contact %s: %v", id, err))
			continue
		}
		result.Successful++
	}

	s.logger.Info("broadcast finished",
		slog.Int("successful", result.Successful),
		slog.Int("failed", result.Failed))
	return result, nil
}
