package engine

import "encoding/json"

// Message is a decoded celima/data JSON object. Field access is best-effort:
// missing or non-numeric values read as 0, matching the edge gateways'
// sparse payloads.
type Message map[string]interface{}

// ParseMessage decodes one inbound payload.
func ParseMessage(payload []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(payload, &msg)
	return msg, err
}

func (m Message) Int(key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	}
	return 0
}

func (m Message) Has(key string) bool {
	_, ok := m[key]
	return ok
}
