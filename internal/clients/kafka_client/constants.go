package kafka_client

import "time"

const (
	KAFKA_TOPIC_POST_EVENTS = "bot-post-events"
	PRODUCER_CLIENT_ID      = "photobot-producer"
)

const (
	PRODUCE_RETRIES = 3
	RETRY_DELAY     = 500 * time.Millisecond
)
