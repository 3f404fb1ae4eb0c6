package engine

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(clock *testClock) *Router {
	logger, _ := test.NewNullLogger()
	return NewRouter(NewRegistry(clock.now), "site/", logger.WithField("Context", "Router"))
}

func TestGivenDataSampleThenRouterReturnsDeviceTopics(t *testing.T) {
	router := newTestRouter(newTestClock(10))

	pubs := router.Route(TopicData, []byte(`{"deviceType":1,"lineID":1,"cantidadProductos":100}`))

	require.Len(t, pubs, 2)
	assert.Equal(t, "site/1/prensa_hidraulica1/alarms", pubs[0].Topic)
	assert.Equal(t, "site/1/prensa_hidraulica1/production", pubs[1].Topic)
}

func TestGivenInvalidJSONThenRouterDropsMessage(t *testing.T) {
	clock := newTestClock(10)
	logger, hook := test.NewNullLogger()
	router := NewRouter(NewRegistry(clock.now), "site/", logger.WithField("Context", "Router"))

	pubs := router.Route(TopicData, []byte(`{not json`))

	assert.Nil(t, pubs)
	require.NotEmpty(t, hook.Entries)
	assert.Contains(t, hook.LastEntry().Message, "invalid JSON")
}

func TestGivenUnknownDeviceTypeThenRouterUsesDefaultProcessor(t *testing.T) {
	router := newTestRouter(newTestClock(10))

	pubs := router.Route(TopicData, []byte(`{"deviceType":42,"cantidad":7,"alarms":1}`))

	require.Len(t, pubs, 2)
	assert.Equal(t, "site//production/line/quantity", pubs[0].Topic)
	assert.Equal(t, "site//quality/alarms", pubs[1].Topic)

	doc := decodePayload(t, pubs[0])
	assert.Equal(t, float64(7), number(t, doc, "quantity"))
	doc = decodePayload(t, pubs[1])
	assert.Equal(t, float64(1), number(t, doc, "alarms"))
}

func TestGivenMissingDeviceTypeThenRouterUsesDefaultProcessor(t *testing.T) {
	router := newTestRouter(newTestClock(10))

	pubs := router.Route(TopicData, []byte(`{"cantidad":3}`))
	require.Len(t, pubs, 2)
}

func TestGivenPassThroughTopicThenRouterOnlyLogs(t *testing.T) {
	clock := newTestClock(10)
	logger, hook := test.NewNullLogger()
	router := NewRouter(NewRegistry(clock.now), "site/", logger.WithField("Context", "Router"))

	for _, topic := range []string{TopicError, TopicJoin, TopicACK} {
		pubs := router.Route(topic, []byte(`gateway says hi`))
		assert.Nil(t, pubs)
	}
	assert.Len(t, hook.Entries, 3)
}

func TestGivenShiftChangeThenRouterLogsItOnce(t *testing.T) {
	clock := newTestClock(10)
	logger, hook := test.NewNullLogger()
	router := NewRouter(NewRegistry(clock.now), "site/", logger.WithField("Context", "Router"))

	payload := []byte(`{"deviceType":1,"lineID":1}`)
	router.Route(TopicData, payload)
	router.Route(TopicData, payload)

	count := 0
	for _, entry := range hook.Entries {
		if entry.Message == "shift change detected" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	clock.setHour(16)
	router.Route(TopicData, payload)
	count = 0
	for _, entry := range hook.Entries {
		if entry.Message == "shift change detected" {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestGivenSubscribedTopicsThenAllFourPresent(t *testing.T) {
	assert.Equal(t, []string{TopicData, TopicError, TopicJoin, TopicACK}, SubscribedTopics())
}

func TestGivenRegistryResetThenAccumulatorsStartOver(t *testing.T) {
	clock := newTestClock(10)
	registry := NewRegistry(clock.now)
	p := registry.ForDeviceType(1)

	p.Process(pressSample(100, 0, 0, 0), testPrefix)
	p.Process(pressSample(150, 0, 0, 0), testPrefix)

	registry.ResetStates()

	pubs := p.Process(pressSample(300, 0, 0, 0), testPrefix)
	doc := decodePayload(t, pubs[1])
	assert.Equal(t, float64(0), number(t, doc, "cantidadPisadas_turno"))
}
