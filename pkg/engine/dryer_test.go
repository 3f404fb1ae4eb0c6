package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGivenSamplesThenDryerInAccumulates(t *testing.T) {
	clock := newTestClock(10)
	p := newDryerInProcessor(clock.now)

	p.Process(Message{"lineID": float64(2), "arranques": float64(10), "tiempoOperacion_s": float64(100)}, testPrefix)
	pubs := p.Process(Message{"lineID": float64(2), "arranques": float64(13), "tiempoOperacion_s": float64(125)}, testPrefix)

	require.Len(t, pubs, 2)
	assert.Equal(t, "site/2/entrada_secador/alarms", pubs[0].Topic)
	assert.Equal(t, "site/2/entrada_secador/production", pubs[1].Topic)

	doc := decodePayload(t, pubs[1])
	assert.Equal(t, float64(3), number(t, doc, "cantidad_arranques"))
	assert.Equal(t, float64(25), number(t, doc, "tiempo_operacion"))
	assert.Equal(t, float64(3), number(t, doc, "maquina_id"))
}

func TestGivenSpikeThenDryerInRejectsDelta(t *testing.T) {
	clock := newTestClock(10)
	p := newDryerInProcessor(clock.now)

	p.Process(Message{"arranques": float64(10), "tiempoOperacion_s": float64(0)}, testPrefix)
	// 500 starts in one sample window is garbage (ceiling is 100).
	pubs := p.Process(Message{"arranques": float64(510), "tiempoOperacion_s": float64(0)}, testPrefix)

	doc := decodePayload(t, pubs[1])
	assert.Equal(t, float64(0), number(t, doc, "cantidad_arranques"))
}

func TestGivenSamplesThenDryerOutAccumulates(t *testing.T) {
	clock := newTestClock(10)
	p := newDryerOutProcessor(clock.now)

	sample := Message{
		"lineID":              float64(1),
		"cantidadProductos":   float64(50),
		"tiempoProduccion_ds": float64(100),
		"paradas":             float64(1),
		"tiempoParadas_s":     float64(10),
	}
	p.Process(sample, testPrefix)

	next := Message{
		"lineID":              float64(1),
		"cantidadProductos":   float64(80),
		"tiempoProduccion_ds": float64(400),
		"paradas":             float64(2),
		"tiempoParadas_s":     float64(25),
	}
	pubs := p.Process(next, testPrefix)

	doc := decodePayload(t, pubs[1])
	assert.Equal(t, float64(4), number(t, doc, "maquina_id"))
	assert.Equal(t, float64(30), number(t, doc, "cantidad_produccion"))
	assert.Equal(t, float64(30), number(t, doc, "tiempo_produccion"))
	assert.Equal(t, float64(1), number(t, doc, "cantidad_paradas"))
	assert.Equal(t, float64(15), number(t, doc, "tiempo_paradas"))
	assert.Equal(t, "site/1/salida_secador/production", pubs[1].Topic)
}

func TestGivenShiftChangeThenDryerOutResets(t *testing.T) {
	clock := newTestClock(10)
	p := newDryerOutProcessor(clock.now)

	p.Process(Message{"cantidadProductos": float64(10)}, testPrefix)
	p.Process(Message{"cantidadProductos": float64(60)}, testPrefix)

	clock.setHour(23)
	pubs := p.Process(Message{"cantidadProductos": float64(90)}, testPrefix)
	doc := decodePayload(t, pubs[1])

	assert.Equal(t, float64(0), number(t, doc, "cantidad_produccion"))
	assert.Equal(t, float64(3), number(t, doc, "turno"))
}
