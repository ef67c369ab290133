// Package messaging publica los movimientos de stock confirmados en un tópico Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/jhoicas/vitrina-stock/internal/application/inventory"
)

var _ inventory.MovementPublisher = (*MovementPublisher)(nil)

// messageWriter lo que se usa de *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MovementMessage cuerpo JSON de cada mensaje del tópico.
type MovementMessage struct {
	EventID           string    `json:"event_id"`
	StoreID           string    `json:"store_id"`
	ProductID         int64     `json:"product_id"`
	Delta             int       `json:"delta"`
	ResultingQuantity int       `json:"resulting_quantity"`
	Reason            string    `json:"reason"`
	Actor             string    `json:"actor"`
	OrderReference    string    `json:"order_reference,omitempty"`
	MinStockAlert     int       `json:"min_stock_alert"`
	LowStock          bool      `json:"low_stock"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// MovementPublisher escribe un mensaje por entrada de ledger.
// La clave es store_id:product_id para conservar el orden por producto dentro de la partición.
type MovementPublisher struct {
	writer messageWriter
}

// NewWriter construye el *kafka.Writer para el tópico de movimientos.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

// NewMovementPublisher construye el publicador sobre un writer.
func NewMovementPublisher(writer *kafka.Writer) *MovementPublisher {
	return &MovementPublisher{writer: writer}
}

// Publish envía los eventos en un solo lote. El contexto de traza viaja en los headers.
func (p *MovementPublisher) Publish(ctx context.Context, events ...inventory.MovementEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		msg, err := buildMessage(ctx, ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: write movements: %w", err)
	}
	return nil
}

// Close vacía y cierra el writer.
func (p *MovementPublisher) Close() error {
	return p.writer.Close()
}

func buildMessage(ctx context.Context, ev inventory.MovementEvent) (kafka.Message, error) {
	e := ev.Entry
	body, err := json.Marshal(MovementMessage{
		EventID:           e.ID,
		StoreID:           e.StoreID,
		ProductID:         e.ProductID,
		Delta:             e.Delta,
		ResultingQuantity: e.ResultingQuantity,
		Reason:            e.Reason,
		Actor:             e.Actor,
		OrderReference:    e.OrderReference,
		MinStockAlert:     ev.MinStockAlert,
		LowStock:          ev.LowStock,
		OccurredAt:        e.CreatedAt,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: marshal movement: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.StoreID + ":" + strconv.FormatInt(e.ProductID, 10)),
		Value: body,
		Time:  e.CreatedAt,
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})
	return msg, nil
}

// headerCarrier adapta los headers del mensaje a propagation.TextMapCarrier.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
