package engine

import (
	"sync"
	"time"

	"github.com/celima-edge/celima-isa95-bridge/pkg/entities"
)

// Dryer infeed safe-delta ceilings, tuned to the ~30 s publish cadence of
// the gateway: no more than 100 motor starts or 30 elapsed seconds between
// samples.
const (
	dryerInMaxArranques = 100
	dryerInMaxOperacion = 30
)

type dryerInState struct {
	initialized bool
	shift       entities.Shift

	arranques  counter // arranques, 15-bit
	tOperacion counter // tiempoOperacion_s, 15-bit, seconds
}

type dryerInProcessor struct {
	now func() time.Time

	mu     sync.Mutex
	states map[int]*dryerInState
}

func newDryerInProcessor(now func() time.Time) *dryerInProcessor {
	return &dryerInProcessor{now: now, states: make(map[int]*dryerInState)}
}

type dryerInProduction struct {
	MaquinaID         int    `json:"maquina_id"`
	Turno             int    `json:"turno"`
	CantidadArranques uint32 `json:"cantidad_arranques"`
	TiempoOperacion   uint32 `json:"tiempo_operacion"`
	TimestampDevice   string `json:"timestamp_device"`
}

func (p *dryerInProcessor) Process(msg Message, isa95Prefix string) []entities.Publication {
	shiftNow := entities.CurrentShift(p.now())

	lineID := msg.Int("lineID")
	alarms := msg.Int("alarms")
	rawArranques := mask15(msg.Int("arranques"))
	rawOperacion := mask15(msg.Int("tiempoOperacion_s"))

	p.mu.Lock()
	st := p.states[lineID]
	if st == nil {
		st = &dryerInState{}
		p.states[lineID] = st
	}
	if !st.initialized || st.shift != shiftNow {
		st.initialized = true
		st.shift = shiftNow
		st.arranques.reset(rawArranques)
		st.tOperacion.reset(rawOperacion)
	} else {
		st.arranques.addSafe(rawArranques, dryerInMaxArranques)
		st.tOperacion.addSafe(rawOperacion, dryerInMaxOperacion)
	}
	arranques := st.arranques.acc
	operacion := st.tOperacion.acc
	p.mu.Unlock()

	al := alarmsDocument{Alarms: alarms, TimestampDevice: isoTimestamp(p.now())}
	prod := dryerInProduction{
		MaquinaID:         3,
		Turno:             int(shiftNow),
		CantidadArranques: arranques,
		TiempoOperacion:   operacion,
		TimestampDevice:   isoTimestamp(p.now()),
	}

	slug := entities.DeviceTypeEntradaSecador.Slug()
	return []entities.Publication{
		makePublication(deviceTopic(isa95Prefix, lineID, slug, "alarms"), al),
		makePublication(deviceTopic(isa95Prefix, lineID, slug, "production"), prod),
	}
}

func (p *dryerInProcessor) resetStates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = make(map[int]*dryerInState)
}

type dryerOutState struct {
	initialized bool
	shift       entities.Shift

	prodQ counter     // cantidadProductos, 15-bit
	prodT deciCounter // tiempoProduccion_ds, 16-bit deciseconds
	stopQ counter     // paradas, 15-bit
	stopT counter     // tiempoParadas_s, 15-bit, seconds
}

type dryerOutProcessor struct {
	now func() time.Time

	mu     sync.Mutex
	states map[int]*dryerOutState
}

func newDryerOutProcessor(now func() time.Time) *dryerOutProcessor {
	return &dryerOutProcessor{now: now, states: make(map[int]*dryerOutState)}
}

type lineProduction struct {
	MaquinaID          int    `json:"maquina_id"`
	Turno              int    `json:"turno"`
	CantidadProduccion uint32 `json:"cantidad_produccion"`
	TiempoProduccion   uint32 `json:"tiempo_produccion"`
	CantidadParadas    uint32 `json:"cantidad_paradas"`
	TiempoParadas      uint32 `json:"tiempo_paradas"`
	TimestampDevice    string `json:"timestamp_device"`
}

func (p *dryerOutProcessor) Process(msg Message, isa95Prefix string) []entities.Publication {
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
		st = &dryerOutState{}
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
		st.prodQ.add15(prodQ)
		st.prodT.add16(prodT)
		st.stopQ.add15(stopQ)
		st.stopT.add15(stopT)
	}
	outProdQ := st.prodQ.acc
	outProdT := st.prodT.seconds()
	outStopQ := st.stopQ.acc
	outStopT := st.stopT.acc
	p.mu.Unlock()

	al := alarmsDocument{Alarms: alarms, TimestampDevice: isoTimestamp(p.now())}
	prod := lineProduction{
		MaquinaID:          4,
		Turno:              int(shiftNow),
		CantidadProduccion: outProdQ,
		TiempoProduccion:   outProdT,
		CantidadParadas:    outStopQ,
		TiempoParadas:      outStopT,
		TimestampDevice:    isoTimestamp(p.now()),
	}

	slug := entities.DeviceTypeSalidaSecador.Slug()
	return []entities.Publication{
		makePublication(deviceTopic(isa95Prefix, lineID, slug, "alarms"), al),
		makePublication(deviceTopic(isa95Prefix, lineID, slug, "production"), prod),
	}
}

func (p *dryerOutProcessor) resetStates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = make(map[int]*dryerOutState)
}
