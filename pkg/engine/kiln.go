package engine

import (
	"sync"
	"time"

	"github.com/celima-edge/celima-isa95-bridge/pkg/entities"
)

// Kiln infeed safe-delta ceilings per ~30 s sample window.
const (
	kilnInMaxCantidad  = 200
	kilnInMaxProdTime  = 250
	kilnInMaxParadas   = 50
	kilnInMaxStopTime  = 30
	kilnInMaxFallas    = 20
	kilnInMaxFallaTime = 30
)

type kilnInState struct {
	initialized bool
	shift       entities.Shift

	prodQ  counter     // cantidad, 15-bit
	prodT  deciCounter // tiempoProd_ds, 15-bit deciseconds
	stopQ  counter     // paradas, 15-bit
	stopT  counter     // tiempoParadas_s, 15-bit
	fallaQ counter     // fallaHorno, 15-bit
	fallaT counter     // tiempoFalla_s, 15-bit
}

type kilnInProcessor struct {
	now func() time.Time

	mu     sync.Mutex
	states map[int]*kilnInState
}

func newKilnInProcessor(now func() time.Time) *kilnInProcessor {
	return &kilnInProcessor{now: now, states: make(map[int]*kilnInState)}
}

type kilnInProduction struct {
	MaquinaID          int    `json:"maquina_id"`
	Turno              int    `json:"turno"`
	CantidadProduccion uint32 `json:"cantidad_produccion"`
	CantidadParadas    uint32 `json:"cantidad_paradas"`
	CantidadFallas     uint32 `json:"cantidad_fallas"`
	TiempoProduccion   uint32 `json:"tiempo_produccion"`
	TiempoParadas      uint32 `json:"tiempo_paradas"`
	TiempoFallas       uint32 `json:"tiempo_fallas"`
	TimestampDevice    string `json:"timestamp_device"`
}

func (p *kilnInProcessor) Process(msg Message, isa95Prefix string) []entities.Publication {
	shiftNow := entities.CurrentShift(p.now())

	lineID := msg.Int("lineID")
	alarms := msg.Int("alarms")
	prodQ := mask15(msg.Int("cantidad"))
	prodT := mask15(msg.Int("tiempoProd_ds"))
	stopQ := mask15(msg.Int("paradas"))
	stopT := mask15(msg.Int("tiempoParadas_s"))
	fallaQ := mask15(msg.Int("fallaHorno"))
	fallaT := mask15(msg.Int("tiempoFalla_s"))

	p.mu.Lock()
	st := p.states[lineID]
	if st == nil {
		st = &kilnInState{}
		p.states[lineID] = st
	}
	if !st.initialized || st.shift != shiftNow {
		st.initialized = true
		st.shift = shiftNow
		st.prodQ.reset(prodQ)
		st.prodT.reset(prodT)
		st.stopQ.reset(stopQ)
		st.stopT.reset(stopT)
		st.fallaQ.reset(fallaQ)
		st.fallaT.reset(fallaT)
	} else {
		st.prodQ.addSafe(prodQ, kilnInMaxCantidad)
		st.prodT.addSafe(prodT, kilnInMaxProdTime)
		st.stopQ.addSafe(stopQ, kilnInMaxParadas)
		st.stopT.addSafe(stopT, kilnInMaxStopTime)
		st.fallaQ.addSafe(fallaQ, kilnInMaxFallas)
		st.fallaT.addSafe(fallaT, kilnInMaxFallaTime)
	}
	outProdQ := st.prodQ.acc
	outProdT := st.prodT.seconds()
	outStopQ := st.stopQ.acc
	outStopT := st.stopT.acc
	outFallaQ := st.fallaQ.acc
	outFallaT := st.fallaT.acc
	p.mu.Unlock()

	al := alarmsDocument{Alarms: alarms, TimestampDevice: isoTimestamp(p.now())}
	prod := kilnInProduction{
		MaquinaID:          6,
		Turno:              int(shiftNow),
		CantidadProduccion: outProdQ,
		CantidadParadas:    outStopQ,
		CantidadFallas:     outFallaQ,
		TiempoProduccion:   outProdT,
		TiempoParadas:      outStopT,
		TiempoFallas:       outFallaT,
		TimestampDevice:    isoTimestamp(p.now()),
	}

	slug := entities.DeviceTypeEntradaHorno.Slug()
	return []entities.Publication{
		makePublication(deviceTopic(isa95Prefix, lineID, slug, "alarms"), al),
		makePublication(deviceTopic(isa95Prefix, lineID, slug, "production"), prod),
	}
}

func (p *kilnInProcessor) resetStates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = make(map[int]*kilnInState)
}

// kilnOutCounterKeys lists the 15-bit counters the kiln outfeed PLC reports.
// Each gets an _instantaneo, a _turno and a bit15_corruption_ field on the
// production document.
var kilnOutCounterKeys = []string{
	"bancalinos0",
	"bancalinos1",
	"bancalinosComb1",
	"bancalinosComb2",
	"bancalinosTotal",
	"cambioBarrera",
	"cambioBarreraTotal",
	"cambioSentido",
	"cambioSentidoTotal",
	"cantidad",
	"cantidad_total",
	"paradas_1",
	"paradas_2",
}

type kilnOutState struct {
	initialized bool
	shift       entities.Shift

	counters map[string]*counter
	timer1Hz counter // 16-bit second-tick clock
}

func newKilnOutState() *kilnOutState {
	st := &kilnOutState{counters: make(map[string]*counter, len(kilnOutCounterKeys))}
	for _, key := range kilnOutCounterKeys {
		st.counters[key] = &counter{}
	}
	return st
}

type kilnOutProcessor struct {
	now func() time.Time

	mu     sync.Mutex
	states map[int]*kilnOutState
}

func newKilnOutProcessor(now func() time.Time) *kilnOutProcessor {
	return &kilnOutProcessor{now: now, states: make(map[int]*kilnOutState)}
}

func (p *kilnOutProcessor) Process(msg Message, isa95Prefix string) []entities.Publication {
	shiftNow := entities.CurrentShift(p.now())

	lineID := msg.Int("lineID")
	alarms := msg.Int("alarms")

	raw := make(map[string]int, len(kilnOutCounterKeys))
	clean := make(map[string]uint16, len(kilnOutCounterKeys))
	for _, key := range kilnOutCounterKeys {
		raw[key] = msg.Int(key)
		clean[key] = mask15(raw[key])
	}
	timerClean := uint16(msg.Int("timer1Hz"))

	accs := make(map[string]uint32, len(kilnOutCounterKeys))

	p.mu.Lock()
	st := p.states[lineID]
	if st == nil {
		st = newKilnOutState()
		p.states[lineID] = st
	}
	if !st.initialized || st.shift != shiftNow {
		st.initialized = true
		st.shift = shiftNow
		for _, key := range kilnOutCounterKeys {
			st.counters[key].reset(clean[key])
		}
		st.timer1Hz.reset(timerClean)
	} else {
		for _, key := range kilnOutCounterKeys {
			st.counters[key].add15(clean[key])
		}
		st.timer1Hz.add16(timerClean)
	}
	for _, key := range kilnOutCounterKeys {
		accs[key] = st.counters[key].acc
	}
	operationSeconds := st.timer1Hz.acc
	p.mu.Unlock()

	prod := map[string]interface{}{
		"maquina_id":               7,
		"turno":                    int(shiftNow),
		"deviceType":               msg.Int("deviceType"),
		"lineID":                   lineID,
		"checksum":                 msg.Int("checksum"),
		"timer1Hz_instantaneo":     timerClean,
		"tiempo_operacion_turno_s": operationSeconds,
		"timestamp_device":         isoTimestamp(p.now()),
	}
	for _, key := range kilnOutCounterKeys {
		prod[key+"_instantaneo"] = clean[key]
		prod[key+"_turno"] = accs[key]
		prod["bit15_corruption_"+key] = corrupted15(raw[key])
	}

	al := alarmsDocument{Alarms: alarms, TimestampDevice: isoTimestamp(p.now())}

	slug := entities.DeviceTypeSalidaHorno.Slug()
	return []entities.Publication{
		makePublication(deviceTopic(isa95Prefix, lineID, slug, "alarms"), al),
		makePublication(deviceTopic(isa95Prefix, lineID, slug, "production"), prod),
	}
}

func (p *kilnOutProcessor) resetStates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = make(map[int]*kilnOutState)
}
