package engine

import (
	"time"

	"github.com/celima-edge/celima-isa95-bridge/pkg/entities"
)

// defaultProcessor handles samples whose deviceType is absent or outside the
// known set: it forwards a minimal summary onto two generic topics without
// touching any accumulator state.
type defaultProcessor struct {
	now func() time.Time
}

func newDefaultProcessor(now func() time.Time) *defaultProcessor {
	return &defaultProcessor{now: now}
}

type defaultQuantity struct {
	Quantity int   `json:"quantity"`
	TS       int64 `json:"ts"`
}

type defaultAlarms struct {
	Alarms int   `json:"alarms"`
	TS     int64 `json:"ts"`
}

func (p *defaultProcessor) Process(msg Message, isa95Prefix string) []entities.Publication {
	ts := p.now().Unix()
	return []entities.Publication{
		makePublication(isa95Prefix+"/production/line/quantity", defaultQuantity{
			Quantity: msg.Int("cantidad"),
			TS:       ts,
		}),
		makePublication(isa95Prefix+"/quality/alarms", defaultAlarms{
			Alarms: msg.Int("alarms"),
			TS:     ts,
		}),
	}
}
