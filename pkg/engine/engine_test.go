package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/celima-edge/celima-isa95-bridge/pkg/entities"
	"github.com/stretchr/testify/require"
)

// testClock is an injectable wall clock; setHour moves it across shift
// boundaries.
type testClock struct {
	current time.Time
}

func newTestClock(hour int) *testClock {
	c := &testClock{}
	c.setHour(hour)
	return c
}

func (c *testClock) now() time.Time {
	return c.current
}

func (c *testClock) setHour(hour int) {
	c.current = time.Date(2025, time.March, 10, hour, 30, 0, 0, time.UTC)
}

func decodePayload(t *testing.T, pub entities.Publication) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(pub.Payload), &doc))
	return doc
}

func number(t *testing.T, doc map[string]interface{}, key string) float64 {
	t.Helper()
	value, ok := doc[key].(float64)
	require.True(t, ok, "field %s missing or not numeric", key)
	return value
}
