package config

import "time"

// MQTTConfig configures the sensor occupancy feed.  An empty Broker
// disables the feed; occupancy then only arrives over HTTP.
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Topic          string
	QoS            byte
	ConnectTimeout time.Duration
}

// LoadMQTTConfig reads MQTT_* variables.
func LoadMQTTConfig() MQTTConfig {
	qos := envInt("MQTT_QOS", 1)
	if qos < 0 || qos > 2 {
		qos = 1
	}
	return MQTTConfig{
		Broker:         getenv("MQTT_BROKER", ""),
		ClientID:       getenv("MQTT_CLIENT_ID", "smartpark-server"),
		Username:       getenv("MQTT_USERNAME", ""),
		Password:       getenv("MQTT_PASSWORD", ""),
		Topic:          getenv("MQTT_TOPIC", "smartpark/occupancy"),
		QoS:            byte(qos),
		ConnectTimeout: envDur("MQTT_CONNECT_TIMEOUT", 10*time.Second),
	}
}
