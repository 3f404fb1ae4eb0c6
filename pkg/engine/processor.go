package engine

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/celima-edge/celima-isa95-bridge/pkg/entities"
)

// Processor converts one inbound sample into the publications derived from
// it. Implementations own their per-line accumulator state and are safe for
// concurrent Process calls.
type Processor interface {
	Process(msg Message, isa95Prefix string) []entities.Publication
}

type resettable interface {
	resetStates()
}

// alarmsDocument is the payload of every <prefix><line>/<slug>/alarms topic.
type alarmsDocument struct {
	Alarms          int    `json:"alarms"`
	TimestampDevice string `json:"timestamp_device"`
}

const timestampLayout = "2006-01-02T15:04:05.000Z"

func isoTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func deviceTopic(prefix string, lineID int, slug, kind string) string {
	return prefix + strconv.Itoa(lineID) + "/" + slug + "/" + kind
}

func makePublication(topic string, payload interface{}) entities.Publication {
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte("{}")
	}
	return entities.Publication{Topic: topic, Payload: string(body)}
}

// Registry maps deviceType values to their processor. Unknown values fall
// back to the pass-through default processor.
type Registry struct {
	now        func() time.Time
	processors map[entities.DeviceType]Processor
	fallback   Processor
	ph1        *pressProcessor
	ph2        *pressProcessor
}

// NewRegistry builds the processor set. The clock is injectable for tests;
// nil means time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	r := &Registry{now: now}
	r.ph1 = newPressProcessor(1, entities.DeviceTypePH1.Slug(), now)
	r.ph2 = newPressProcessor(2, entities.DeviceTypePH2.Slug(), now)
	r.processors = map[entities.DeviceType]Processor{
		entities.DeviceTypePH1:            r.ph1,
		entities.DeviceTypePH2:            r.ph2,
		entities.DeviceTypeEntradaSecador: newDryerInProcessor(now),
		entities.DeviceTypeSalidaSecador:  newDryerOutProcessor(now),
		entities.DeviceTypeEsmalte:        newGlazeProcessor(now),
		entities.DeviceTypeEntradaHorno:   newKilnInProcessor(now),
		entities.DeviceTypeSalidaHorno:    newKilnOutProcessor(now),
		entities.DeviceTypeCalidad:        newQualityProcessor(now),
	}
	r.fallback = newDefaultProcessor(now)
	return r
}

// ForDeviceType resolves the processor for a raw deviceType value.
func (r *Registry) ForDeviceType(v int) Processor {
	dt, ok := entities.DeviceTypeFromInt(v)
	if !ok {
		return r.fallback
	}
	return r.processors[dt]
}

// SetPieceFactors overrides the pieces-per-stamp mapping used by both
// hydraulic presses.
func (r *Registry) SetPieceFactors(factors map[int]int) {
	r.ph1.setFactors(factors)
	r.ph2.setFactors(factors)
}

// ResetStates wipes every processor's line states. Used by tests and
// operational resets; production state otherwise lives until process exit.
func (r *Registry) ResetStates() {
	for _, p := range r.processors {
		if res, ok := p.(resettable); ok {
			res.resetStates()
		}
	}
}
