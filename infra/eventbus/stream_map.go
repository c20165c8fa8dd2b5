package eventbus

import (
	"fmt"
	"strings"
)

func streamNameFor(prefix, eventType string) string {
	return nameFor(prefix+"events", eventType)
}

// dlqStreamName returns the DLQ stream name for the given event type.
func dlqStreamName(prefix, eventType string) string {
	return nameFor(prefix+"dlq", eventType)
}

// groupNameFor returns the Redis consumer group name for the event type.
func groupNameFor(prefix, eventType string) string {
	return nameFor(prefix+"group", eventType)
}

// topicNameFor returns the Kafka topic for the event type.
func topicNameFor(topicPrefix, eventType string) string {
	return topicPrefix + "." + strings.ToLower(eventType)
}

func nameFor(prefix string, eventType string) string {
	parts := strings.Split(eventType, ".")
	if len(parts) == 2 {
		return fmt.Sprintf(
			"%s:%s:%s",
			prefix,
			strings.ToLower(parts[0]),
			strings.ToLower(parts[1]))
	}
	return fmt.Sprintf("%s:%s", prefix, strings.ToLower(eventType))
}
