package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/models"

	"github.com/segmentio/kafka-go"
)

var eventTypes = []string{
	models.EventPurchaseInitiated,
	models.EventPurchaseConfirmed,
	models.EventPurchaseApproved,
	models.EventPurchaseRejected,
	models.EventTicketCheckedIn,
}

func TopicName(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

// RequiredTopics lists every topic the service publishes to.
func RequiredTopics(prefix string) []string {
	topics := make([]string, 0, len(eventTypes))
	for _, t := range eventTypes {
		topics = append(topics, TopicName(prefix, t))
	}
	return topics
}

// EnsureTopicsExist creates missing topics through the cluster controller.
func EnsureTopicsExist(ctx context.Context, brokers []string, topics []string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	var failed []string
	for _, topic := range topics {
		err := controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		switch {
		case err == nil:
			log.LogKafka("CREATE_TOPIC", topic, "created")
		case errors.Is(err, kafka.TopicAlreadyExists):
			log.LogKafka("CREATE_TOPIC", topic, "already exists")
		default:
			log.Error("KAFKA", fmt.Sprintf("Error creating topic %s: %v", topic, err))
			failed = append(failed, topic)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to create %d topic(s): %v", len(failed), failed)
	}
	return nil
}
