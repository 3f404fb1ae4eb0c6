package engine

// PLC counter words arrive as JSON integers and are truncated to 16 bits.
// Most signals are 15-bit counters whose MSB is a bank flag that must be
// masked off before any arithmetic; a few are plain 16-bit counters.

const (
	counterMask15 = 0x7FFF
	counterMod15  = 0x8000
	counterMod16  = 0x10000
)

func mask15(x int) uint16 {
	return uint16(x) & counterMask15
}

// corrupted15 reports whether bit 15 of the raw word was set.
func corrupted15(x int) bool {
	return x&0x8000 != 0
}

func diff15(curr, prev uint16) uint16 {
	if curr >= prev {
		return curr - prev
	}
	return uint16(counterMod15 + uint32(curr) - uint32(prev))
}

func diff16(curr, prev uint16) uint16 {
	if curr >= prev {
		return curr - prev
	}
	return uint16(counterMod16 + uint32(curr) - uint32(prev))
}

// safeDelta computes the 16-bit rollover delta and rejects anything above
// maxReasonable as a noise burst. The rejected sample contributes 0 but the
// caller still advances its baseline to the latest reading.
func safeDelta(prev, curr, maxReasonable uint16) uint32 {
	d := diff16(curr, prev)
	if d == 0 || d > maxReasonable {
		return 0
	}
	return uint32(d)
}

// counter is the per-signal accumulator state: the most recently observed
// masked word and the running shift total.
type counter struct {
	last uint16
	acc  uint32
}

func (c *counter) reset(raw uint16) {
	c.last = raw
	c.acc = 0
}

func (c *counter) add15(raw uint16) {
	c.acc += uint32(diff15(raw, c.last))
	c.last = raw
}

func (c *counter) add16(raw uint16) {
	c.acc += uint32(diff16(raw, c.last))
	c.last = raw
}

func (c *counter) addSafe(raw, maxReasonable uint16) {
	c.acc += safeDelta(c.last, raw, maxReasonable)
	c.last = raw
}

// deciCounter accumulates a deci-second tick clock into seconds. The float
// accumulator keeps sub-second remainders across samples; published values
// truncate to whole seconds.
type deciCounter struct {
	last       uint16
	accSeconds float64
}

func (c *deciCounter) reset(raw uint16) {
	c.last = raw
	c.accSeconds = 0
}

func (c *deciCounter) add16(raw uint16) {
	c.accSeconds += float64(diff16(raw, c.last)) * 0.1
	c.last = raw
}

func (c *deciCounter) addSafe(raw, maxReasonable uint16) {
	c.accSeconds += float64(safeDelta(c.last, raw, maxReasonable)) * 0.1
	c.last = raw
}

func (c *deciCounter) seconds() uint32 {
	return uint32(c.accSeconds)
}
