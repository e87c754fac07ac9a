// Package crc16 implements the transfer-wide integrity check used by
// multi-frame UAVCAN transfers: a reflected CRC-16/CCITT (poly 0x1021,
// init 0x0000), serialized little-endian, whose residue collapses to
// zero once the trailing CRC bytes themselves have been absorbed.
package crc16

// Size is the width, in bytes, of the CRC value as it appears on the wire.
const Size = 2

const (
	initial = 0x0000
	// poly is 0x1021 bit-reflected.
	poly = 0x8408
	// residue is the register value that a correct payload, followed by
	// its own correctly-computed little-endian CRC, always collapses to.
	residue = 0x0000
)

var table [256]uint16

func init() {
	for i := range table {
		c := uint16(i)
		for range 8 {
			if c&1 != 0 {
				c = c>>1 ^ poly
			} else {
				c >>= 1
			}
		}
		table[i] = c
	}
}

// Digest is an incremental CRC register. Since the initial value is
// 0x0000, the zero value is a freshly initialized register, the same as
// New().
type Digest struct {
	reg uint16
}

// New returns a freshly initialized digest.
func New() Digest {
	return Digest{reg: initial}
}

// Add absorbs the given byte slices, in order, into the register and
// returns the updated digest.
func (d Digest) Add(fragments [][]byte) Digest {
	reg := d.reg
	for _, f := range fragments {
		for _, b := range f {
			reg = table[byte(reg)^b] ^ reg>>8
		}
	}
	return Digest{reg: reg}
}

// Bytes returns the current register value as 2 little-endian bytes,
// suitable for appending to a payload as its transfer CRC.
func (d Digest) Bytes() [Size]byte {
	return [Size]byte{byte(d.reg), byte(d.reg >> 8)}
}

// CheckResidue reports whether the register equals the algorithm's
// residue constant, i.e. whether the digest has absorbed a correct
// payload immediately followed by its own CRC.
func (d Digest) CheckResidue() bool {
	return d.reg == residue
}

// Compute is a convenience wrapper computing the CRC of fragments in one call.
func Compute(fragments [][]byte) [Size]byte {
	return New().Add(fragments).Bytes()
}
