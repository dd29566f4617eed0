package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/coachbotai/coachbot/internal/aiconfig"
	"github.com/coachbotai/coachbot/internal/contacts"
	"github.com/coachbotai/coachbot/internal/delivery"
	"github.com/coachbotai/coachbot/internal/gateway"
	"github.com/coachbotai/coachbot/internal/messages"
	"github.com/coachbotai/coachbot/internal/responder"
	"github.com/coachbotai/coachbot/internal/summaries"
)

type mockContacts struct {
	mu       sync.Mutex
	resolve  func(phone, displayName string) (contacts.Contact, error)
	resolved []string
	bumped   []string
}

func (m *mockContacts) ResolveOrCreate(ctx context.Context, phone, displayName string) (contacts.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, phone)
	return m.resolve(phone, displayName)
}

func (m *mockContacts) RecordMessage(ctx context.Context, contactID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bumped = append(m.bumped, contactID)
	return nil
}

func (m *mockContacts) GetByID(ctx context.Context, id string) (contacts.Contact, error) {
	return m.resolve("", "")
}

func (m *mockContacts) bumpCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bumped)
}

type mockLog struct {
	mu      sync.Mutex
	history []messages.Message
	created []messages.CreateRequest
	linked  [][2]string
}

func (m *mockLog) Create(ctx context.Context, req messages.CreateRequest) (messages.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, req)
	return messages.Message{ID: fmt.Sprintf("msg-%d", len(m.created)), ContactID: req.ContactID, Content: req.Content}, nil
}

func (m *mockLog) History(ctx context.Context, contactID string, limit int) ([]messages.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history, nil
}

func (m *mockLog) LinkResponse(ctx context.Context, messageID, responseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linked = append(m.linked, [2]string{messageID, responseID})
	return nil
}

type mockGenerator struct {
	mu         sync.Mutex
	generate   func(contact contacts.Contact, content string) responder.Result
	summarize  func(window []messages.Message) (responder.SummaryData, error)
	generated  []string
	summarized int
}

func (m *mockGenerator) Generate(ctx context.Context, contact contacts.Contact, content string, history []messages.Message) responder.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generated = append(m.generated, content)
	if m.generate != nil {
		return m.generate(contact, content)
	}
	return responder.Result{Text: "respuesta", Source: responder.SourceModel, Params: aiconfig.Defaults()}
}

func (m *mockGenerator) Summarize(ctx context.Context, window []messages.Message) (responder.SummaryData, error) {
	m.mu.Lock()
	m.summarized++
	m.mu.Unlock()
	if m.summarize != nil {
		return m.summarize(window)
	}
	return responder.SummaryData{Summary: "resumen", KeyTopics: []string{"fuerza"}, Sentiment: "positive"}, nil
}

type mockDeliverer struct {
	mu        sync.Mutex
	deliver   func(contact contacts.Contact, text string, delayMin, delayMax int) (messages.Message, error)
	delivered []string
	done      chan struct{}
}

func (m *mockDeliverer) Deliver(ctx context.Context, contact contacts.Contact, text string, delayMin, delayMax int) (messages.Message, error) {
	m.mu.Lock()
	m.delivered = append(m.delivered, text)
	m.mu.Unlock()
	if m.done != nil {
		defer func() { m.done <- struct{}{} }()
	}
	if m.deliver != nil {
		return m.deliver(contact, text, delayMin, delayMax)
	}
	return messages.Message{ID: "reply-1", ContactID: contact.ID, Content: text}, nil
}

type mockSummaries struct {
	mu     sync.Mutex
	stored []summaries.CreateRequest
}

func (m *mockSummaries) Create(ctx context.Context, req summaries.CreateRequest) (summaries.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append(m.stored, req)
	return summaries.Summary{ID: "s1", ContactID: req.ContactID}, nil
}

func activeContact() contacts.Contact {
	return contacts.Contact{
		ID:          "c1",
		PhoneNumber: "+34600111222",
		Name:        "Ana",
		Status:      contacts.StatusActive,
		AIEnabled:   true,
	}
}

func waitDelivery(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background turn did not complete")
	}
}

func TestHandleInboundFullTurn(t *testing.T) {
	cs := &mockContacts{resolve: func(phone, displayName string) (contacts.Contact, error) {
		c := activeContact()
		c.Name = displayName
		return c, nil
	}}
	log := &mockLog{}
	gen := &mockGenerator{}
	del := &mockDeliverer{done: make(chan struct{}, 1)}
	sum := &mockSummaries{}

	o := New(slog.Default(), cs, log, gen, del, sum, 2, 8)
	defer o.Shutdown()

	err := o.HandleInbound(context.Background(), gateway.InboundEvent{
		From:        "whatsapp:+34600111222",
		Body:        "quiero entrenar",
		MessageID:   "SM1",
		ProfileName: "Ana",
	})
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	waitDelivery(t, del.done)
	o.Shutdown()

	if cs.resolved[0] != "+34600111222" {
		t.Fatalf("expected canonical phone, got %q", cs.resolved[0])
	}
	if len(log.created) != 1 || log.created[0].Direction != messages.DirectionIncoming {
		t.Fatalf("expected one incoming message persisted, got %+v", log.created)
	}
	if len(cs.bumped) != 1 {
		t.Fatal("expected contact counter bump")
	}
	if len(gen.generated) != 1 || gen.generated[0] != "quiero entrenar" {
		t.Fatalf("unexpected generation input: %v", gen.generated)
	}
	if len(del.delivered) != 1 || del.delivered[0] != "respuesta" {
		t.Fatalf("unexpected delivery: %v", del.delivered)
	}
	if len(log.linked) != 1 || log.linked[0] != [2]string{"msg-1", "reply-1"} {
		t.Fatalf("expected inbound linked to reply, got %v", log.linked)
	}
	if len(sum.stored) != 0 {
		t.Fatal("short history must not trigger summarization")
	}
}

type stubSender struct{}

func (stubSender) Send(toAddress, text string) (string, error) { return "SM-out", nil }

func TestFullTurnBumpsContactForBothDirections(t *testing.T) {
	cs := &mockContacts{resolve: func(string, string) (contacts.Contact, error) { return activeContact(), nil }}
	log := &mockLog{}
	gen := &mockGenerator{generate: func(contacts.Contact, string) responder.Result {
		return responder.Result{Text: "respuesta", Source: responder.SourceModel}
	}}
	scheduler := delivery.NewScheduler(slog.Default(), stubSender{}, log, cs)

	o := New(slog.Default(), cs, log, gen, scheduler, &mockSummaries{}, 1, 4)
	if err := o.HandleInbound(context.Background(), gateway.InboundEvent{
		From: "whatsapp:+34600111222", Body: "hola",
	}); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	o.Shutdown()

	if len(log.created) != 2 {
		t.Fatalf("expected inbound and outbound messages persisted, got %d", len(log.created))
	}
	if log.created[0].Direction != messages.DirectionIncoming || log.created[1].Direction != messages.DirectionOutgoing {
		t.Fatalf("unexpected directions: %+v", log.created)
	}
	if got := cs.bumpCount(); got != 2 {
		t.Fatalf("expected a counter bump per message, got %d", got)
	}
}

func TestHandleInboundSuppressed(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*contacts.Contact)
	}{
		{name: "ai disabled", mutate: func(c *contacts.Contact) { c.AIEnabled = false }},
		{name: "blocked", mutate: func(c *contacts.Contact) { c.Status = contacts.StatusBlocked }},
		{name: "paused", mutate: func(c *contacts.Contact) { c.Status = contacts.StatusPaused }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := activeContact()
			tc.mutate(&c)
			cs := &mockContacts{resolve: func(string, string) (contacts.Contact, error) { return c, nil }}
			log := &mockLog{}
			gen := &mockGenerator{}
			del := &mockDeliverer{}

			o := New(slog.Default(), cs, log, gen, del, &mockSummaries{}, 1, 4)
			err := o.HandleInbound(context.Background(), gateway.InboundEvent{
				From: "whatsapp:+34600111222", Body: "hola",
			})
			if err != nil {
				t.Fatalf("HandleInbound: %v", err)
			}
			o.Shutdown()

			if len(log.created) != 1 {
				t.Fatal("incoming message must still be persisted")
			}
			if len(gen.generated) != 0 || len(del.delivered) != 0 {
				t.Fatal("suppressed contact must not generate or deliver")
			}
		})
	}
}

func TestHandleInboundResolveFailure(t *testing.T) {
	cs := &mockContacts{resolve: func(string, string) (contacts.Contact, error) {
		return contacts.Contact{}, contacts.ErrInvalidPhone
	}}
	o := New(slog.Default(), cs, &mockLog{}, &mockGenerator{}, &mockDeliverer{}, &mockSummaries{}, 1, 4)
	defer o.Shutdown()

	err := o.HandleInbound(context.Background(), gateway.InboundEvent{From: "garbage", Body: "hola"})
	if !errors.Is(err, contacts.ErrInvalidPhone) {
		t.Fatalf("expected invalid phone error, got %v", err)
	}
}

func TestSummarizationTrigger(t *testing.T) {
	cases := []struct {
		name       string
		historyLen int
		wantStored int
	}{
		{name: "exact interval", historyLen: 10, wantStored: 1},
		{name: "double interval", historyLen: 20, wantStored: 1},
		{name: "off interval", historyLen: 7, wantStored: 0},
		{name: "empty history", historyLen: 0, wantStored: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			history := make([]messages.Message, tc.historyLen)
			for i := range history {
				history[i] = messages.Message{Direction: messages.DirectionIncoming, Content: fmt.Sprintf("m%d", i)}
			}
			cs := &mockContacts{resolve: func(string, string) (contacts.Contact, error) { return activeContact(), nil }}
			log := &mockLog{history: history}
			del := &mockDeliverer{done: make(chan struct{}, 1)}
			sum := &mockSummaries{}

			o := New(slog.Default(), cs, log, &mockGenerator{}, del, sum, 1, 4)
			if err := o.HandleInbound(context.Background(), gateway.InboundEvent{
				From: "whatsapp:+34600111222", Body: "hola",
			}); err != nil {
				t.Fatalf("HandleInbound: %v", err)
			}
			waitDelivery(t, del.done)
			o.Shutdown()

			if len(sum.stored) != tc.wantStored {
				t.Fatalf("expected %d summaries, got %d", tc.wantStored, len(sum.stored))
			}
			if tc.wantStored == 1 && sum.stored[0].Sentiment != "positive" {
				t.Fatalf("unexpected summary payload: %+v", sum.stored[0])
			}
		})
	}
}

func TestSummarizationFailureSkipsStore(t *testing.T) {
	history := make([]messages.Message, 10)
	for i := range history {
		history[i] = messages.Message{Direction: messages.DirectionIncoming, Content: "m"}
	}
	cs := &mockContacts{resolve: func(string, string) (contacts.Contact, error) { return activeContact(), nil }}
	gen := &mockGenerator{summarize: func([]messages.Message) (responder.SummaryData, error) {
		return responder.SummaryData{}, errors.New("model down")
	}}
	del := &mockDeliverer{done: make(chan struct{}, 1)}
	sum := &mockSummaries{}

	o := New(slog.Default(), cs, &mockLog{history: history}, gen, del, sum, 1, 4)
	if err := o.HandleInbound(context.Background(), gateway.InboundEvent{
		From: "whatsapp:+34600111222", Body: "hola",
	}); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	waitDelivery(t, del.done)
	o.Shutdown()

	if gen.summarized != 1 {
		t.Fatalf("expected one summarization attempt, got %d", gen.summarized)
	}
	if len(sum.stored) != 0 {
		t.Fatal("failed summarization must not store")
	}
}

func TestQueueFullDropsTurn(t *testing.T) {
	cs := &mockContacts{resolve: func(string, string) (contacts.Contact, error) { return activeContact(), nil }}
	block := make(chan struct{})
	started := make(chan struct{}, 16)
	del := &mockDeliverer{deliver: func(contacts.Contact, string, int, int) (messages.Message, error) {
		started <- struct{}{}
		<-block
		return messages.Message{ID: "reply-1"}, nil
	}}

	o := New(slog.Default(), cs, &mockLog{}, &mockGenerator{}, del, &mockSummaries{}, 1, 1)

	// First turn occupies the worker, second fills the queue, third drops.
	for i := 0; i < 3; i++ {
		if err := o.HandleInbound(context.Background(), gateway.InboundEvent{
			From: "whatsapp:+34600111222", Body: "hola",
		}); err != nil {
			t.Fatalf("HandleInbound %d: %v", i, err)
		}
		if i == 0 {
			select {
			case <-started:
			case <-time.After(2 * time.Second):
				t.Fatal("worker never picked up the first turn")
			}
		}
	}
	if o.Dropped() != 1 {
		t.Fatalf("expected 1 dropped turn, got %d", o.Dropped())
	}
	close(block)
	o.Shutdown()
}
