package entities

// Publication is one outbound MQTT message produced by a processor. The
// payload is the textual form of a JSON object; the bridge publishes it at
// QoS 1, not retained.
type Publication struct {
	Topic   string
	Payload string
}
