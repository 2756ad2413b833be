package events

import (
	"context"
	"encoding/json"
	"fmt"

	aqm "github.com/appetiteclub/apt"
	aqmevents "github.com/appetiteclub/apt/events"
	"github.com/chopline/kds/internal/enums/orderstatus"
	"github.com/chopline/kds/internal/event"
	"github.com/chopline/kds/internal/kds"
)

// Applier is the engine surface the change feed writes through. It is the
// authoritative writer: applied events win over outstanding optimistic
// mutations for the same id.
type Applier interface {
	ApplyUpsert(o kds.Order)
	ApplyDelete(id kds.OrderID)
	Resync(ctx context.Context) error
}

// Subscription is a live feed subscription handle.
type Subscription interface {
	Unsubscribe() error
}

// Feed is the push transport delivering order change events.
type Feed interface {
	Subscribe(ctx context.Context, topic string, handler aqmevents.HandlerFunc) (Subscription, error)
}

// OrderChangeSubscriber consumes the backing store's change notifications,
// normalizes each payload and applies it to the engine. Bucket mutation
// completes synchronously before the handler returns; nothing here blocks on
// announcement work.
type OrderChangeSubscriber struct {
	feed    Feed
	applier Applier
	topic   string
	logger  aqm.Logger
	sub     Subscription
}

func NewOrderChangeSubscriber(feed Feed, applier Applier, logger aqm.Logger) *OrderChangeSubscriber {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &OrderChangeSubscriber{
		feed:    feed,
		applier: applier,
		topic:   event.OrderChangesTopic,
		logger:  logger,
	}
}

func (s *OrderChangeSubscriber) Start(ctx context.Context) error {
	sub, err := s.feed.Subscribe(ctx, s.topic, s.handleEvent)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, err)
	}
	s.sub = sub
	s.logger.Infof("subscribed to %s", s.topic)
	return nil
}

func (s *OrderChangeSubscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", s.topic, err)
	}
	s.sub = nil
	return nil
}

// OnReconnect is the transport's reconnect hook. Missed events cannot be
// detected from the feed alone, so the whole board is refetched rather than
// patched.
func (s *OrderChangeSubscriber) OnReconnect(ctx context.Context) {
	s.logger.Info("feed reconnected, resynchronizing board")
	if err := s.applier.Resync(ctx); err != nil {
		s.logger.Errorf("resync after reconnect failed: %v", err)
	}
}

func (s *OrderChangeSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt event.OrderChangeEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Errorf("failed to unmarshal change event: %v", err)
		return nil
	}

	switch evt.Kind {
	case event.KindInsert, event.KindUpdate:
		if evt.New == nil {
			s.logger.Errorf("%s event without new row, ignored", evt.Kind)
			return nil
		}
		s.applier.ApplyUpsert(orderFromRecord(*evt.New))
	case event.KindDelete:
		if evt.Old == nil {
			s.logger.Errorf("DELETE event without old row, ignored")
			return nil
		}
		s.applier.ApplyDelete(evt.Old.ID)
	default:
		// Silently ignore unknown event kinds (forward compatibility)
	}
	return nil
}

// orderFromRecord converts a wire row into a board snapshot, normalizing the
// status to the closed vocabulary at the collaborator boundary.
func orderFromRecord(rec event.OrderRecord) kds.Order {
	o := kds.Order{
		ID:        rec.ID,
		Name:      rec.Name,
		TableNo:   rec.TableNo,
		Price:     rec.Price,
		Note:      rec.Note,
		Status:    orderstatus.Normalize(rec.Status).Code(),
		Priority:  rec.Priority,
		CreatedAt: rec.CreatedAt,
	}
	if rec.UpdatedAt != nil {
		o.UpdatedAt = *rec.UpdatedAt
	}
	return o
}
