package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/caja-api/internal/domain/entity"
	"github.com/jhoicas/caja-api/internal/infrastructure/messaging"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func sampleSale() *entity.Sale {
	return &entity.Sale{
		ID: "S1", LocationID: 3, RegisterID: "1", Operator: "ana",
		SoldAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		TotalValue: decimal.RequireFromString("10.00"),
		Items:      []*entity.SoldItem{{ProductID: 7, Quantity: 2}},
	}
}

func TestPublishSaleRegistered_CuerpoYRuteo(t *testing.T) {
	ch := &fakeChannel{}
	p := messaging.NewSalePublisher(ch, "caja.sales")

	require.NoError(t, p.PublishSaleRegistered(context.Background(), sampleSale()))

	assert.Equal(t, "caja.sales", ch.exchange)
	assert.Equal(t, "sale.registered.3", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var ev messaging.SaleRegisteredEvent
	require.NoError(t, json.Unmarshal(ch.msg.Body, &ev))
	assert.Equal(t, "S1", ev.SaleID)
	assert.Equal(t, ch.msg.MessageId, ev.EventID)
	assert.True(t, decimal.RequireFromString("10").Equal(ev.TotalValue))
	require.Len(t, ev.Items, 1)
	assert.Equal(t, int64(7), ev.Items[0].ProductID)
}

func TestPublishSaleRegistered_ErrorDelBroker(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := messaging.NewSalePublisher(ch, "caja.sales")

	err := p.PublishSaleRegistered(context.Background(), sampleSale())
	assert.Error(t, err)
}
