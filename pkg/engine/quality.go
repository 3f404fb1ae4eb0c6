package engine

import (
	"sync"
	"time"

	"github.com/celima-edge/celima-isa95-bridge/pkg/entities"
)

type qualityState struct {
	initialized bool
	shift       entities.Shift

	q1     uint64
	q2     uint64
	q6     uint64
	broken uint64
}

// qualityProcessor tallies sorting-station boxes per shift. It accepts two
// payload shapes: the accumulated form (boxesQ1/boxesQ2/boxesQ6/totalBroken,
// each a delta to add) and the older per-box event form (cajaCalidad plus
// quebrados/quebrado).
type qualityProcessor struct {
	now func() time.Time

	mu     sync.Mutex
	states map[int]*qualityState
}

func newQualityProcessor(now func() time.Time) *qualityProcessor {
	return &qualityProcessor{now: now, states: make(map[int]*qualityState)}
}

type qualityProduction struct {
	MaquinaID       int    `json:"maquina_id"`
	TimestampDevice string `json:"timestamp_device"`
	Shift           int    `json:"shift"`
	LineID          int    `json:"lineID"`
	ExtraC1         uint64 `json:"extra_c1"`
	ExtraC2         uint64 `json:"extra_c2"`
	Comercial       uint64 `json:"comercial"`
	Quebrados       uint64 `json:"quebrados"`
}

func (p *qualityProcessor) Process(msg Message, isa95Prefix string) []entities.Publication {
	shiftNow := entities.CurrentShift(p.now())
	lineID := msg.Int("lineID")

	var deltaQ1, deltaQ2, deltaQ6, deltaBroken uint64
	switch {
	case msg.Has("boxesQ1"):
		deltaQ1 = uint64(msg.Int("boxesQ1"))
		deltaQ2 = uint64(msg.Int("boxesQ2"))
		deltaQ6 = uint64(msg.Int("boxesQ6"))
		deltaBroken = uint64(msg.Int("totalBroken"))
	case msg.Has("cajaCalidad"):
		switch msg.Int("cajaCalidad") {
		case 1:
			deltaQ1 = 1
		case 2:
			deltaQ2 = 1
		case 6:
			deltaQ6 = 1
		}
		broken := msg.Int("quebrados")
		if !msg.Has("quebrados") {
			broken = msg.Int("quebrado")
		}
		if broken > 0 {
			deltaBroken = uint64(broken)
		}
	}

	p.mu.Lock()
	st := p.states[lineID]
	if st == nil {
		st = &qualityState{}
		p.states[lineID] = st
	}
	if !st.initialized || st.shift != shiftNow {
		*st = qualityState{initialized: true, shift: shiftNow}
	}
	st.q1 += deltaQ1
	st.q2 += deltaQ2
	st.q6 += deltaQ6
	st.broken += deltaBroken
	q1, q2, q6, broken := st.q1, st.q2, st.q6, st.broken
	p.mu.Unlock()

	prod := qualityProduction{
		MaquinaID:       8,
		TimestampDevice: isoTimestamp(p.now()),
		Shift:           int(shiftNow),
		LineID:          lineID,
		ExtraC1:         q1,
		ExtraC2:         q2,
		Comercial:       q6,
		Quebrados:       broken,
	}

	slug := entities.DeviceTypeCalidad.Slug()
	return []entities.Publication{
		makePublication(deviceTopic(isa95Prefix, lineID, slug, "production"), prod),
	}
}

func (p *qualityProcessor) resetStates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = make(map[int]*qualityState)
}
