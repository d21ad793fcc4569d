package infra

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

func RMQConnect(url string) (*amqp.Connection, error) {
	return amqp.Dial(url)
}
