package broker

import (
	"errors"
	"testing"
	"time"

	"github.com/celima-edge/celima-isa95-bridge/pkg/engine"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func fixedClock() time.Time {
	return time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
}

func newTestBridge(client Client) (*Bridge, *test.Hook) {
	logger, hook := test.NewNullLogger()
	registry := engine.NewRegistry(fixedClock)
	router := engine.NewRouter(registry, "site/", logger.WithField("Context", "Router"))
	return NewBridge(client, router, logger.WithField("Context", "Bridge")), hook
}

func TestGivenConnectErrorThenStartFails(t *testing.T) {
	clientMock := new(ClientMock)
	clientMock.On("Connect").Return(errors.New("broker unreachable"))
	bridge, _ := newTestBridge(clientMock)

	err := bridge.Start()

	assert.Error(t, err)
	clientMock.AssertExpectations(t)
}

func TestGivenConnectedThenStartSubscribesToAllTopics(t *testing.T) {
	clientMock := new(ClientMock)
	clientMock.On("Connect").Return(nil)
	clientMock.On("Subscribe", engine.SubscribedTopics()).Return(nil)
	bridge, _ := newTestBridge(clientMock)

	err := bridge.Start()

	assert.NoError(t, err)
	clientMock.AssertExpectations(t)
}

func TestGivenDataSampleThenBridgePublishesBothDocuments(t *testing.T) {
	clientMock := new(ClientMock)
	clientMock.On("Publish", "site/1/prensa_hidraulica1/alarms", mock.Anything).Return(nil)
	clientMock.On("Publish", "site/1/prensa_hidraulica1/production", mock.Anything).Return(nil)
	bridge, _ := newTestBridge(clientMock)

	bridge.handle(engine.TopicData, []byte(`{"deviceType":1,"lineID":1,"cantidadProductos":100}`))

	clientMock.AssertExpectations(t)
	clientMock.AssertNumberOfCalls(t, "Publish", 2)
}

func TestGivenPublishErrorThenBridgeLogsAndContinues(t *testing.T) {
	clientMock := new(ClientMock)
	clientMock.On("Publish", mock.Anything, mock.Anything).Return(errors.New("publish failed"))
	bridge, hook := newTestBridge(clientMock)

	bridge.handle(engine.TopicData, []byte(`{"deviceType":1,"lineID":1}`))

	clientMock.AssertNumberOfCalls(t, "Publish", 2)
	found := false
	for _, entry := range hook.Entries {
		if entry.Message == "publish failed" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGivenPassThroughTopicThenBridgePublishesNothing(t *testing.T) {
	clientMock := new(ClientMock)
	bridge, _ := newTestBridge(clientMock)

	bridge.handle(engine.TopicJoin, []byte(`gateway joined`))

	clientMock.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestGivenStopThenBridgeUnsubscribesAndDisconnects(t *testing.T) {
	clientMock := new(ClientMock)
	clientMock.On("Unsubscribe", engine.SubscribedTopics()).Return(nil)
	clientMock.On("Disconnect").Return()
	bridge, _ := newTestBridge(clientMock)

	bridge.Stop()

	clientMock.AssertExpectations(t)
}

func TestGivenDuplicationFilterThenExactReplayIsDropped(t *testing.T) {
	clientMock := new(ClientMock)
	clientMock.On("Publish", mock.Anything, mock.Anything).Return(nil)
	bridge, _ := newTestBridge(clientMock)
	bridge.EnableDuplicationFilter(1000, 0.01, 75)

	payload := []byte(`{"deviceType":1,"lineID":1,"cantidadProductos":100}`)
	bridge.handle(engine.TopicData, payload)
	bridge.handle(engine.TopicData, payload)

	// The replay was dropped, so only the first sample published.
	clientMock.AssertNumberOfCalls(t, "Publish", 2)
}

func TestGivenFilterDisabledThenReplayIsProcessedAgain(t *testing.T) {
	clientMock := new(ClientMock)
	clientMock.On("Publish", mock.Anything, mock.Anything).Return(nil)
	bridge, _ := newTestBridge(clientMock)

	payload := []byte(`{"deviceType":1,"lineID":1,"cantidadProductos":100}`)
	bridge.handle(engine.TopicData, payload)
	bridge.handle(engine.TopicData, payload)

	clientMock.AssertNumberOfCalls(t, "Publish", 4)
}
