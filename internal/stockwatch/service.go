// Package stockwatch consumes order.created events and flags products whose
// remaining stock has fallen to or below a threshold. Stock is already
// decremented synchronously by the API; this is alerting, not adjustment.
package stockwatch

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/shopcore/orders-api/internal/kafka"
	"github.com/shopcore/orders-api/internal/orders"
)

type ProductReader interface {
	FindAllByID(ctx context.Context, ids []string) (map[string]orders.Product, error)
}

// Flags is satisfied by redisx.StockFlagStore.
type Flags interface {
	Seen(ctx context.Context, eventID string) bool
	MarkSeen(ctx context.Context, eventID string)
	FlagLow(ctx context.Context, productID string, remaining int)
}

type Service struct {
	Products  ProductReader
	Flags     Flags
	Threshold int
}

// HandleOrderCreated is wired as the consumer handler.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	if s.Flags.Seen(ctx, env.EventID) {
		return nil
	}
	s.Flags.MarkSeen(ctx, env.EventID)

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Products.FindAllByID(ctx, ids)
	if err != nil {
		return err
	}

	for _, prod := range products {
		if prod.Quantity > s.Threshold {
			continue
		}
		log.Warn().
			Str("product_id", prod.ID).
			Str("order_id", p.OrderID).
			Int("remaining", prod.Quantity).
			Int("threshold", s.Threshold).
			Msg("low stock")
		s.Flags.FlagLow(ctx, prod.ID, prod.Quantity)
	}
	return nil
}
