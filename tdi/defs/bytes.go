package defs

import (
	"math/big"

	"github.com/google/nftables/binaryutil"
)

// NativeWidth is the widest field the backend carries as a native integer.
const NativeWidth = 64

// Bytes returns the number of bytes needed to store width bits.
func Bytes(width int) int {
	if width <= 0 {
		return 0
	}
	return (width + 7) / 8
}

// Mask returns (1 << width) - 1.
func Mask(width int) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(width))
	return m.Sub(m, big.NewInt(1))
}

// Truncate returns v limited to its lowest width bits. Negative values are
// wrapped (two's complement), so the result is never negative.
func Truncate(v *big.Int, width int) *big.Int {
	if width <= 0 {
		return new(big.Int)
	}
	if v.Sign() >= 0 && v.BitLen() <= width {
		return new(big.Int).Set(v)
	}
	return new(big.Int).And(v, Mask(width))
}

// ToBytes packs v into a big-endian array of Bytes(width) bytes.
func ToBytes(v *big.Int, width int) []byte {
	n := Bytes(width)
	if n == 0 {
		return []byte{}
	}
	x := Truncate(v, width)
	if n <= 8 {
		b := binaryutil.BigEndian.PutUint64(x.Uint64())
		return b[8-n:]
	}
	return x.FillBytes(make([]byte, n))
}

// FromBytes unpacks a big-endian array built by ToBytes. Only the first
// Bytes(width) bytes are read. A shorter array holds the low order bytes.
func FromBytes(b []byte, width int) *big.Int {
	n := Bytes(width)
	if n == 0 {
		return new(big.Int)
	}
	buf := make([]byte, n)
	if len(b) >= n {
		copy(buf, b[:n])
	} else {
		copy(buf[n-len(b):], b)
	}
	if n <= 8 {
		padded := make([]byte, 8)
		copy(padded[8-n:], buf)
		v := new(big.Int).SetUint64(binaryutil.BigEndian.Uint64(padded))
		return Truncate(v, width)
	}
	return Truncate(new(big.Int).SetBytes(buf), width)
}

// Uint64 returns the native form of an integer field value.
func Uint64(v *big.Int) uint64 {
	return Truncate(v, NativeWidth).Uint64()
}
