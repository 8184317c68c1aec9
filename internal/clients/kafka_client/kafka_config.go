package kafka_client

type KafkaConfig struct {
	Broker string
	Topic  string
}

// Enabled reports whether a broker is configured.
func (c KafkaConfig) Enabled() bool {
	return c.Broker != ""
}
