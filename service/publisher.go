package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// amqpChannel 发布所需的通道方法
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// WarningPublisher 将低预算提醒事件投递到 RabbitMQ 队列
type WarningPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel amqpChannel
	queue   string
}

// NewWarningPublisher 连接 RabbitMQ 并声明持久化队列
func NewWarningPublisher(url, queue string) (*WarningPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &WarningPublisher{conn: conn, channel: ch, queue: q.Name}, nil
}

// Notify 实现 Notifier
func (p *WarningPublisher) Notify(_ context.Context, w BudgetWarning) error {
	return p.Publish(w)
}

// Publish 以 JSON 投递一条提醒；amqp.Channel 不支持并发发布，需加锁
func (p *WarningPublisher) Publish(w BudgetWarning) error {
	body, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal warning: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		"",      // 默认交换机，按队列名路由
		p.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish warning: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"queue":   p.queue,
		"user_id": w.UserID,
		"month":   w.Month,
	}).Debug("budget warning published")
	return nil
}

// Close 释放通道和连接
func (p *WarningPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
