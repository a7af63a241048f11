package services

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"chute-service/logger"
)

// AMQPPublisher 将进球事件转发到外部 AMQP Exchange，
// 供公告板、推送服务等独立消费者订阅
type AMQPPublisher struct {
	url      string
	exchange string
	conn     *amqp.Connection
	channel  *amqp.Channel
	done     chan struct{}
}

// NewAMQPPublisher 建立 AMQP 连接并声明 Exchange
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	config := amqp.Config{
		Heartbeat: 60 * time.Second,
		Locale:    "en_US",
	}

	conn, err := amqp.DialConfig(url, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// 声明 fanout Exchange，消费者各自绑定队列
	if err := channel.ExchangeDeclare(
		exchange,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Printf("Connected to AMQP, exchange declared: %s", exchange)

	return &AMQPPublisher{
		url:      url,
		exchange: exchange,
		conn:     conn,
		channel:  channel,
		done:     make(chan struct{}),
	}, nil
}

// Run 消费 Broker 的进球 Topic 并转发到 AMQP，通道关闭时返回
func (p *AMQPPublisher) Run(broker MessageBroker) {
	msgs, err := broker.Consume(TopicGoals)
	if err != nil {
		logger.Errorf("AMQP publisher failed to subscribe: %v", err)
		return
	}

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := p.publish(msg); err != nil {
				logger.Errorf("Failed to publish goal event to AMQP: %v", err)
			}
		case <-p.done:
			return
		}
	}
}

// publish 发送单条消息
func (p *AMQPPublisher) publish(msg BrokerMessage) error {
	return p.channel.Publish(
		p.exchange,
		msg.Topic, // routing key (fanout 下仅作标记)
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   msg.Key,
			Timestamp:   time.Now(),
			Body:        msg.Value,
		},
	)
}

// Stop 关闭连接
func (p *AMQPPublisher) Stop() {
	logger.Println("Stopping AMQP publisher...")
	close(p.done)
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
