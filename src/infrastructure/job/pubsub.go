package job

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Queue drivers.
const (
	DriverAMQP      = "amqp"
	DriverGoChannel = "gochannel"
)

type PubSubConfig struct {
	Driver  string
	AMQPURL string
}

// PubSub is a connected publisher and subscriber pair.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

func (p *PubSub) Close() error {
	if err := p.Publisher.Close(); err != nil {
		return err
	}
	return p.Subscriber.Close()
}

// NewPubSub connects to the configured broker. The gochannel driver keeps
// messages in process and loses them on exit.
func NewPubSub(cfg PubSubConfig, logger watermill.LoggerAdapter) (*PubSub, error) {
	switch cfg.Driver {
	case DriverGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		return &PubSub{Publisher: ch, Subscriber: ch}, nil

	case DriverAMQP, "":
		publisher, err := amqp.NewPublisher(amqp.NewDurableQueueConfig(cfg.AMQPURL), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create amqp publisher: %w", err)
		}

		subscriberConfig := amqp.NewDurableQueueConfig(cfg.AMQPURL)
		subscriberConfig.Consume.NoRequeueOnNack = true
		subscriber, err := amqp.NewSubscriber(subscriberConfig, logger)
		if err != nil {
			publisher.Close()
			return nil, fmt.Errorf("failed to create amqp subscriber: %w", err)
		}
		return &PubSub{Publisher: publisher, Subscriber: subscriber}, nil

	default:
		return nil, fmt.Errorf("unknown queue driver: %s", cfg.Driver)
	}
}
