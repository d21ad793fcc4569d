package watcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lumbrjx/codek7/streaming/internal/infra"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the part of *amqp.Channel the sender uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NotificationSender publishes HLS outcomes to RabbitMQ
type NotificationSender struct {
	connection *amqp.Connection
	channel    Publisher
	closer     func() error
	queueName  string
}

// NewNotificationSender dials RabbitMQ and declares the durable notification queue.
func NewNotificationSender(rmqURL, queueName string) (*NotificationSender, error) {
	conn, err := infra.RMQConnect(rmqURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &NotificationSender{
		connection: conn,
		channel:    ch,
		closer:     ch.Close,
		queueName:  queueName,
	}, nil
}

func newSenderWithPublisher(p Publisher, queueName string) *NotificationSender {
	return &NotificationSender{channel: p, queueName: queueName}
}

// SendNotification sends a notification to the queue
func (ns *NotificationSender) SendNotification(notification Notification) error {
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}

	body, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return ns.channel.PublishWithContext(ctx,
		"",           // exchange
		ns.queueName, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
}

func (ns *NotificationSender) Close() error {
	if ns.closer != nil {
		_ = ns.closer()
	}
	if ns.connection != nil {
		return ns.connection.Close()
	}
	return nil
}

func (ns *NotificationSender) SendSuccessNotification(videoID, serviceName, description string) error {
	return ns.SendNotification(Notification{
		EventType:   "success",
		VideoID:     videoID,
		ServiceName: serviceName,
		Description: description,
	})
}

func (ns *NotificationSender) SendErrorNotification(videoID, serviceName, description string) error {
	return ns.SendNotification(Notification{
		EventType:   "error",
		VideoID:     videoID,
		ServiceName: serviceName,
		Description: description,
	})
}
