package broker

import (
	"sync"

	bloomFilter "github.com/bits-and-blooms/bloom/v3"
	"github.com/celima-edge/celima-isa95-bridge/pkg/engine"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Bridge wires the broker connection to the shift accumulator engine: every
// inbound message goes through the router, and the resulting publications
// are handed back to the client at QoS 1, fire-and-forget.
type Bridge struct {
	client Client
	router *engine.Router
	log    *logrus.Entry

	filterMu                     sync.Mutex
	filter                       *bloomFilter.BloomFilter
	maximumPercentageFilterUsage float32
}

func NewBridge(client Client, router *engine.Router, log *logrus.Entry) *Bridge {
	return &Bridge{
		client: client,
		router: router,
		log:    log,
	}
}

// EnableDuplicationFilter turns on best-effort dropping of exact payload
// replays on celima/data. QoS 1 delivery is at-least-once, so the broker may
// redeliver a sample; the cumulative counters make a replay a zero delta in
// the common case, which is why this is off by default.
func (b *Bridge) EnableDuplicationFilter(capacity uint, falsePositiveRate float64, maximumPercentageFilterUsage float32) {
	b.filterMu.Lock()
	defer b.filterMu.Unlock()
	b.filter = bloomFilter.NewWithEstimates(capacity, falsePositiveRate)
	b.maximumPercentageFilterUsage = maximumPercentageFilterUsage
}

// Start connects and subscribes. A connect failure is fatal to the caller.
func (b *Bridge) Start() error {
	if err := b.client.Connect(); err != nil {
		return errors.Wrap(err, "bridge start")
	}
	return b.client.Subscribe(engine.SubscribedTopics(), b.handle)
}

// Stop unsubscribes and disconnects. In-flight handler invocations finish on
// the client's delivery workers before Disconnect returns.
func (b *Bridge) Stop() {
	if err := b.client.Unsubscribe(engine.SubscribedTopics()); err != nil {
		b.log.WithError(err).Warn("unsubscribe failed")
	}
	b.client.Disconnect()
	b.log.Info("disconnected")
}

func (b *Bridge) handle(topic string, payload []byte) {
	if topic == engine.TopicData && b.isDuplicate(payload) {
		b.log.Debug("duplicate sample dropped")
		return
	}

	for _, pub := range b.router.Route(topic, payload) {
		if err := b.client.Publish(pub.Topic, pub.Payload); err != nil {
			b.log.WithError(err).WithField("topic", pub.Topic).Error("publish failed")
		} else {
			b.log.WithField("topic", pub.Topic).Debug("published")
		}
	}
}

func (b *Bridge) isDuplicate(payload []byte) bool {
	b.filterMu.Lock()
	defer b.filterMu.Unlock()
	if b.filter == nil {
		return false
	}
	if b.filter.Test(payload) {
		return true
	}
	b.resetFilterWhenSaturated()
	b.filter.Add(payload)
	return false
}

func (b *Bridge) resetFilterWhenSaturated() {
	approximatedFilterSize := b.filter.ApproximatedSize()
	currentPercentageFilterUsage := (float32(approximatedFilterSize) / float32(b.filter.Cap())) * 100
	if currentPercentageFilterUsage >= b.maximumPercentageFilterUsage {
		b.filter.ClearAll()
	}
}
