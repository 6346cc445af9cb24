package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/caja-api/internal/application/sales"
	"github.com/jhoicas/caja-api/internal/domain/entity"
)

var _ sales.EventPublisher = (*SalePublisher)(nil)

// Publisher lo que SalePublisher usa de *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// SaleRegisteredEvent cuerpo JSON de sale.registered.
type SaleRegisteredEvent struct {
	EventID    string          `json:"event_id"`
	SaleID     string          `json:"sale_id"`
	LocationID int64           `json:"location_id"`
	RegisterID string          `json:"register_id"`
	Operator   string          `json:"operator"`
	TotalValue decimal.Decimal `json:"total_value"`
	Items      []EventItem     `json:"items"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EventItem línea vendida dentro del evento.
type EventItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// SalePublisher publica cada venta confirmada en el exchange con routing key sale.registered.<local>.
type SalePublisher struct {
	ch       Publisher
	exchange string
}

func NewSalePublisher(ch Publisher, exchange string) *SalePublisher {
	return &SalePublisher{ch: ch, exchange: exchange}
}

// RoutingKey clave de ruteo de una venta.
func RoutingKey(locationID int64) string {
	return fmt.Sprintf("sale.registered.%d", locationID)
}

func (p *SalePublisher) PublishSaleRegistered(ctx context.Context, sale *entity.Sale) error {
	ev := SaleRegisteredEvent{
		EventID:    uuid.NewString(),
		SaleID:     sale.ID,
		LocationID: sale.LocationID,
		RegisterID: sale.RegisterID,
		Operator:   sale.Operator,
		TotalValue: sale.TotalValue,
		Items:      make([]EventItem, 0, len(sale.Items)),
		OccurredAt: sale.SoldAt,
	}
	for _, it := range sale.Items {
		ev.Items = append(ev.Items, EventItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("sale event: marshal: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		RoutingKey(sale.LocationID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.EventID,
			Timestamp:    time.Now().UTC(),
			Type:         "sale.registered",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("sale event: publicar %s: %w", sale.ID, err)
	}
	return nil
}
