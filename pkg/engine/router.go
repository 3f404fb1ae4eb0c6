package engine

import (
	"sync/atomic"

	"github.com/celima-edge/celima-isa95-bridge/pkg/entities"
	"github.com/sirupsen/logrus"
)

// Inbound subscription set, all QoS 1.
const (
	TopicData  = "celima/data"
	TopicError = "celima/error"
	TopicJoin  = "celima/join"
	TopicACK   = "celima/ACK"
)

// SubscribedTopics returns the fixed inbound topic set.
func SubscribedTopics() []string {
	return []string{TopicData, TopicError, TopicJoin, TopicACK}
}

// Router dispatches inbound broker messages. Only celima/data goes through
// the processor lookup; the remaining topics are logged untransformed. The
// Router itself is stateless apart from the shift-change latch; all mutable
// accumulator state lives inside the processors.
type Router struct {
	registry  *Registry
	prefix    string
	log       *logrus.Entry
	lastShift int32
}

func NewRouter(registry *Registry, isa95Prefix string, log *logrus.Entry) *Router {
	return &Router{
		registry:  registry,
		prefix:    isa95Prefix,
		log:       log,
		lastShift: -1,
	}
}

// Route handles one inbound (topic, payload) pair and returns the
// publications it produced, if any.
func (r *Router) Route(topic string, payload []byte) []entities.Publication {
	switch topic {
	case TopicData:
		return r.handleData(payload)
	case TopicError:
		r.log.WithField("topic", topic).Error(string(payload))
	case TopicJoin, TopicACK:
		r.log.WithField("topic", topic).Info(string(payload))
	default:
		r.log.WithField("topic", topic).Debug("message ignored")
	}
	return nil
}

func (r *Router) handleData(payload []byte) []entities.Publication {
	msg, err := ParseMessage(payload)
	if err != nil {
		r.log.WithError(err).WithField("payload", string(payload)).Warn("invalid JSON on celima/data")
		return nil
	}

	shiftNow := entities.CurrentShift(r.registry.now())
	if r.markShift(shiftNow) {
		r.log.WithField("turno", int(shiftNow)).Info("shift change detected")
	}

	processor := r.registry.ForDeviceType(msg.Int("deviceType"))
	return processor.Process(msg, r.prefix)
}

// markShift latches the most recently observed shift and reports whether
// this sample is the first of a new shift (or the first overall).
func (r *Router) markShift(s entities.Shift) bool {
	return atomic.SwapInt32(&r.lastShift, int32(s)) != int32(s)
}
