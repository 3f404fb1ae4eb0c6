package engine

import (
	"math"
	"sync"
	"time"

	"github.com/celima-edge/celima-isa95-bridge/pkg/entities"
)

// Pieces per press stroke (pisada) by line. Line layouts differ in mold
// cavities, so one stroke yields a line-dependent number of tiles.
var defaultPieceFactors = map[int]int{
	1: 3,
	2: 3,
	3: 2,
	4: 4,
	5: 2,
}

const fallbackPieceFactor = 3

type pressState struct {
	initialized bool
	shift       entities.Shift

	pisadas  counter     // cantidadProductos, 15-bit, MSB bank flag
	prodTime deciCounter // tiempoProduccion_ds, 16-bit deciseconds
	paradas  counter     // paradas, 15-bit
	stopTime counter     // tiempoParadas_s, 15-bit, seconds
}

// pressProcessor handles both hydraulic presses; machineID distinguishes
// PH_1 from PH_2 on output.
type pressProcessor struct {
	machineID int
	slug      string
	now       func() time.Time

	mu      sync.Mutex
	states  map[int]*pressState
	factors map[int]int
}

func newPressProcessor(machineID int, slug string, now func() time.Time) *pressProcessor {
	return &pressProcessor{
		machineID: machineID,
		slug:      slug,
		now:       now,
		states:    make(map[int]*pressState),
		factors:   defaultPieceFactors,
	}
}

func (p *pressProcessor) setFactors(factors map[int]int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(factors) > 0 {
		p.factors = factors
	}
}

func (p *pressProcessor) pieceFactor(lineID int) int {
	if f, ok := p.factors[lineID]; ok {
		return f
	}
	return fallbackPieceFactor
}

type pressProduction struct {
	MaquinaID int `json:"maquina_id"`
	Turno     int `json:"turno"`

	CantidadProductosRaw         int    `json:"cantidadProductos_raw"`
	CantidadProductosInstantaneo uint16 `json:"cantidadProductos_instantaneo"`
	CorruptCantidadProductos     bool   `json:"bit15_corruption_cantidadProductos"`

	CantidadPisadasTurno   uint32 `json:"cantidadPisadas_turno"`
	CantidadPisadasMin     uint32 `json:"cantidadPisadas_min"`
	CantidadProductosTurno uint32 `json:"cantidadProductos_turno"`

	TiempoProduccionInstantaneo uint16 `json:"tiempoProduccion_ds_instantaneo"`
	TiempoProduccionTurnoS      uint32 `json:"tiempoProduccion_turno_s"`

	ParadasRaw         int    `json:"paradas_raw"`
	ParadasInstantaneo uint16 `json:"paradas_instantaneo"`
	ParadasTurno       uint32 `json:"paradas_turno"`
	CorruptParadas     bool   `json:"bit15_corruption_paradas"`

	TiempoParadasRaw         int    `json:"tiempoParadas_raw"`
	TiempoParadasInstantaneo uint16 `json:"tiempoParadas_instantaneo"`
	TiempoParadasTurnoS      uint32 `json:"tiempoParadas_turno_s"`
	CorruptTiempoParadas     bool   `json:"bit15_corruption_tiempoParadas"`

	TimestampDevice string `json:"timestamp_device"`
}

func (p *pressProcessor) Process(msg Message, isa95Prefix string) []entities.Publication {
	shiftNow := entities.CurrentShift(p.now())

	lineID := msg.Int("lineID")
	alarms := msg.Int("alarms")
	rawCount := msg.Int("cantidadProductos")
	rawProdTime := msg.Int("tiempoProduccion_ds")
	rawStops := msg.Int("paradas")
	rawStopTime := msg.Int("tiempoParadas_s")

	countClean := mask15(rawCount)
	prodTimeClean := uint16(rawProdTime)
	stopsClean := mask15(rawStops)
	stopTimeClean := mask15(rawStopTime)

	p.mu.Lock()
	st := p.states[lineID]
	if st == nil {
		st = &pressState{}
		p.states[lineID] = st
	}
	if !st.initialized || st.shift != shiftNow {
		st.initialized = true
		st.shift = shiftNow
		st.pisadas.reset(countClean)
		st.prodTime.reset(prodTimeClean)
		st.paradas.reset(stopsClean)
		st.stopTime.reset(stopTimeClean)
	} else {
		st.pisadas.add15(countClean)
		st.prodTime.add16(prodTimeClean)
		st.paradas.add15(stopsClean)
		st.stopTime.add15(stopTimeClean)
	}
	pisadas := st.pisadas.acc
	prodSeconds := st.prodTime.accSeconds
	stops := st.paradas.acc
	stopSeconds := st.stopTime.acc
	factor := p.pieceFactor(lineID)
	p.mu.Unlock()

	var pisadasPerMin uint32
	if prodSeconds > 1.0 {
		pisadasPerMin = uint32(math.Round(float64(pisadas) / (prodSeconds / 60.0)))
	}

	al := alarmsDocument{
		Alarms:          alarms,
		TimestampDevice: isoTimestamp(p.now()),
	}

	prod := pressProduction{
		MaquinaID: p.machineID,
		Turno:     int(shiftNow),

		CantidadProductosRaw:         rawCount,
		CantidadProductosInstantaneo: countClean,
		CorruptCantidadProductos:     corrupted15(rawCount),

		CantidadPisadasTurno:   pisadas,
		CantidadPisadasMin:     pisadasPerMin,
		CantidadProductosTurno: pisadas * uint32(factor),

		TiempoProduccionInstantaneo: prodTimeClean,
		TiempoProduccionTurnoS:      uint32(prodSeconds),

		ParadasRaw:         rawStops,
		ParadasInstantaneo: stopsClean,
		ParadasTurno:       stops,
		CorruptParadas:     corrupted15(rawStops),

		TiempoParadasRaw:         rawStopTime,
		TiempoParadasInstantaneo: stopTimeClean,
		TiempoParadasTurnoS:      stopSeconds,
		CorruptTiempoParadas:     corrupted15(rawStopTime),

		TimestampDevice: isoTimestamp(p.now()),
	}

	return []entities.Publication{
		makePublication(deviceTopic(isa95Prefix, lineID, p.slug, "alarms"), al),
		makePublication(deviceTopic(isa95Prefix, lineID, p.slug, "production"), prod),
	}
}

func (p *pressProcessor) resetStates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = make(map[int]*pressState)
}
