package engine

import (
	"sync"
	"time"

	"github.com/celima-edge/celima-isa95-bridge/pkg/entities"
)

// The glaze line PLC produces garbage bursts on every signal, so all four
// counters go through the bounded-delta guard.
const glazeMaxDelta = 200

type glazeState struct {
	initialized bool
	shift       entities.Shift

	prodQ counter
	prodT deciCounter
	stopQ counter
	stopT counter
}

type glazeProcessor struct {
	now func() time.Time

	mu     sync.Mutex
	states map[int]*glazeState
}

func newGlazeProcessor(now func() time.Time) *glazeProcessor {
	return &glazeProcessor{now: now, states: make(map[int]*glazeState)}
}

func (p *glazeProcessor) Process(msg Message, isa95Prefix string) []entities.Publication {
	shiftNow := entities.CurrentShift(p.now())

	lineID := msg.Int("lineID")
	alarms := msg.Int("alarms")
	prodQ := mask15(msg.Int("cantidadProductos"))
	prodT := uint16(msg.Int("tiempoProduccion_ds"))
	stopQ := mask15(msg.Int("paradas"))
	stopT := mask15(msg.Int("tiempoParadas_s"))

	p.mu.Lock()
	st := p.states[lineID]
	if st == nil {
		st = &glazeState{}
		p.states[lineID] = st
	}
	if !st.initialized || st.shift != shiftNow {
		st.initialized = true
		st.shift = shiftNow
		st.prodQ.reset(prodQ)
		st.prodT.reset(prodT)
		st.stopQ.reset(stopQ)
		st.stopT.reset(stopT)
	} else {
		st.prodQ.addSafe(prodQ, glazeMaxDelta)
		st.prodT.addSafe(prodT, glazeMaxDelta)
		st.stopQ.addSafe(stopQ, glazeMaxDelta)
		st.stopT.addSafe(stopT, glazeMaxDelta)
	}
	outProdQ := st.prodQ.acc
	outProdT := st.prodT.seconds()
	outStopQ := st.stopQ.acc
	outStopT := st.stopT.acc
	p.mu.Unlock()

	al := alarmsDocument{Alarms: alarms, TimestampDevice: isoTimestamp(p.now())}
	prod := lineProduction{
		MaquinaID:          5,
		Turno:              int(shiftNow),
		CantidadProduccion: outProdQ,
		TiempoProduccion:   outProdT,
		CantidadParadas:    outStopQ,
		TiempoParadas:      outStopT,
		TimestampDevice:    isoTimestamp(p.now()),
	}

	slug := entities.DeviceTypeEsmalte.Slug()
	return []entities.Publication{
		makePublication(deviceTopic(isa95Prefix, lineID, slug, "alarms"), al),
		makePublication(deviceTopic(isa95Prefix, lineID, slug, "production"), prod),
	}
}

func (p *glazeProcessor) resetStates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = make(map[int]*glazeState)
}
