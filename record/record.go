// File: record/record.go
// Package record defines the fixed-width payload carried through the pipeline
// and the odometer that enumerates its value space.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package record

import "strconv"

// RGB is a plain three-channel colour value. Copied by value on enqueue/dequeue.
type RGB struct {
	R, G, B uint8
}

// AppendText appends "(r, g, b)" to dst.
func (c RGB) AppendText(dst []byte) []byte {
	dst = append(dst, '(')
	dst = strconv.AppendUint(dst, uint64(c.R), 10)
	dst = append(dst, ", "...)
	dst = strconv.AppendUint(dst, uint64(c.G), 10)
	dst = append(dst, ", "...)
	dst = strconv.AppendUint(dst, uint64(c.B), 10)
	return append(dst, ')')
}

func (c RGB) String() string {
	return string(c.AppendText(make([]byte, 0, 16)))
}

// digits is the number of channels in RGB, most significant first.
const digits = 3

// Odometer walks all 2^24 RGB values: B varies fastest and carries into G,
// G carries into R, and R wrapping back to zero completes a full pass.
type Odometer struct {
	d [digits]uint8
}

// Value returns the current reading.
func (o *Odometer) Value() RGB {
	return RGB{R: o.d[0], G: o.d[1], B: o.d[2]}
}

// Next advances by one and reports whether the whole value space was traversed.
func (o *Odometer) Next() (wrapped bool) {
	for i := digits - 1; i >= 0; i-- {
		if o.d[i] != 0xff {
			o.d[i]++
			return false
		}
		o.d[i] = 0
	}
	return true
}

// Reset rewinds to (0, 0, 0).
func (o *Odometer) Reset() {
	o.d = [digits]uint8{}
}
