package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

type invalidatorStub struct {
	profiles []string
	tenants  []string
	err      error
}

func (s *invalidatorStub) Invalidate(_ context.Context, tenantID, profileID string) error {
	if s.err != nil {
		return s.err
	}
	s.profiles = append(s.profiles, tenantID+"/"+profileID)
	return nil
}

func (s *invalidatorStub) InvalidateTenant(_ context.Context, tenantID string) error {
	if s.err != nil {
		return s.err
	}
	s.tenants = append(s.tenants, tenantID)
	return nil
}

type lagRecorder struct{ observed []time.Duration }

func (l *lagRecorder) ObserveInvalidationLag(lag time.Duration) { l.observed = append(l.observed, lag) }

func TestInvalidationConsumerHandleEvent(t *testing.T) {
	invalidator := &invalidatorStub{}
	lag := &lagRecorder{}
	now := time.Date(2026, 3, 10, 12, 0, 2, 0, time.UTC)
	consumer := NewInvalidationConsumer(invalidator, zaptest.NewLogger(t)).
		WithLagObserver(lag).
		WithClock(func() time.Time { return now })

	ctx := context.Background()
	if err := consumer.HandleEvent(ctx, domain.PermissionsInvalidatedEvent{
		TenantID:      "circle-north",
		UserProfileID: "profile-7",
		Scope:         domain.InvalidationScopeProfile,
		OccurredAt:    now.Add(-2 * time.Second),
	}); err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}
	if err := consumer.HandleEvent(ctx, domain.PermissionsInvalidatedEvent{
		TenantID: "circle-south",
		Scope:    domain.InvalidationScopeTenant,
	}); err != nil {
		t.Fatalf("HandleEvent returned error: %v", err)
	}

	if len(invalidator.profiles) != 1 || invalidator.profiles[0] != "circle-north/profile-7" {
		t.Fatalf("unexpected profile invalidations: %v", invalidator.profiles)
	}
	if len(invalidator.tenants) != 1 || invalidator.tenants[0] != "circle-south" {
		t.Fatalf("unexpected tenant invalidations: %v", invalidator.tenants)
	}
	if len(lag.observed) != 1 || lag.observed[0] != 2*time.Second {
		t.Fatalf("expected one 2s lag observation, got %v", lag.observed)
	}
}

func TestInvalidationConsumerRejectsIncompleteEvents(t *testing.T) {
	consumer := NewInvalidationConsumer(&invalidatorStub{}, zaptest.NewLogger(t))
	ctx := context.Background()

	cases := []domain.PermissionsInvalidatedEvent{
		{Scope: domain.InvalidationScopeTenant},
		{TenantID: "t", Scope: domain.InvalidationScopeProfile},
		{TenantID: "t", Scope: "galaxy"},
	}
	for _, event := range cases {
		if err := consumer.HandleEvent(ctx, event); err == nil {
			t.Fatalf("expected error for %+v", event)
		}
	}
}

func TestInvalidationConsumerHandleMessageRoundTrip(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t, "")
	invalidator := &invalidatorStub{}
	consumer := NewInvalidationConsumer(invalidator, zaptest.NewLogger(t))

	event := domain.PermissionsInvalidatedEvent{
		TenantID:      "circle-north",
		UserProfileID: "profile-9",
		Scope:         domain.InvalidationScopeProfile,
		Reason:        "designation_assigned",
	}
	if err := publisher.PublishPermissionsInvalidated(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	produced := <-asyncProducer.input
	value, _ := produced.Value.Encode()

	if err := consumer.HandleMessage(context.Background(), &sarama.ConsumerMessage{Value: value}); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if len(invalidator.profiles) != 1 || invalidator.profiles[0] != "circle-north/profile-9" {
		t.Fatalf("unexpected invalidations: %v", invalidator.profiles)
	}

	if err := consumer.HandleMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")}); err == nil {
		t.Fatal("expected decode error")
	}
	if err := consumer.HandleMessage(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil message")
	}
}

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string { return "member" }
func (s *fakeSession) GenerationID() int32 { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string) {}
func (s *fakeSession) Commit() {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}
func (s *fakeSession) Context() context.Context { return s.ctx }

type fakeClaim struct{ messages chan *sarama.ConsumerMessage }

func (c *fakeClaim) Topic() string { return TopicPermissionsInvalidated }
func (c *fakeClaim) Partition() int32 { return 0 }
func (c *fakeClaim) InitialOffset() int64 { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64 { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestInvalidationConsumerConsumeClaimMarksPoisonMessages(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t, "")
	invalidator := &invalidatorStub{}
	consumer := NewInvalidationConsumer(invalidator, zaptest.NewLogger(t))

	if err := publisher.PublishPermissionsInvalidated(context.Background(), domain.PermissionsInvalidatedEvent{
		TenantID: "circle-north",
		Scope:    domain.InvalidationScopeTenant,
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	valid, _ := (<-asyncProducer.input).Value.Encode()

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 2)}
	claim.messages <- &sarama.ConsumerMessage{Offset: 10, Value: []byte("not json")}
	claim.messages <- &sarama.ConsumerMessage{Offset: 11, Value: valid}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	if err := consumer.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim returned error: %v", err)
	}

	if len(session.marked) != 2 || session.marked[0] != 10 || session.marked[1] != 11 {
		t.Fatalf("expected both offsets marked, got %v", session.marked)
	}
	if len(invalidator.tenants) != 1 {
		t.Fatalf("expected tenant invalidation, got %v", invalidator.tenants)
	}
}

func TestInvalidationConsumerPropagatesInvalidatorErrors(t *testing.T) {
	consumer := NewInvalidationConsumer(&invalidatorStub{err: errors.New("redis down")}, zaptest.NewLogger(t))

	err := consumer.HandleEvent(context.Background(), domain.PermissionsInvalidatedEvent{
		TenantID: "circle-north",
		Scope:    domain.InvalidationScopeTenant,
	})
	if err == nil {
		t.Fatal("expected invalidator error to propagate")
	}
}
