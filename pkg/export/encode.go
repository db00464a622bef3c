package export

import (
	"bufio"
	"encoding/binary"
	"io"
	gomath "math"
	"strconv"
)

// byteOrder is the byte order of binary artifacts, fixed so that
// artifacts are portable between hosts.
var byteOrder = binary.LittleEndian

// FloatPrecision is the number of fractional digits of ASCII floats.
const FloatPrecision = 6

// WriteBinaryFloats writes values as packed 32-bit IEEE floats.
func WriteBinaryFloats(w io.Writer, values []float32) error {
	bw := bufio.NewWriter(w)
	var buf [4]byte
	for _, v := range values {
		byteOrder.PutUint32(buf[:], gomath.Float32bits(v))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteBinaryUint32s writes values as packed 32-bit unsigned integers.
func WriteBinaryUint32s(w io.Writer, values []uint32) error {
	bw := bufio.NewWriter(w)
	var buf [4]byte
	for _, v := range values {
		byteOrder.PutUint32(buf[:], v)
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteASCIIFloats writes values as fixed-point decimal tokens, with a
// newline after every fields tokens and a single space otherwise.
func WriteASCIIFloats(w io.Writer, values []float32, fields int) error {
	return writeASCII(w, len(values), fields, func(dst []byte, i int) []byte {
		return appendFloat(dst, values[i])
	})
}

// WriteASCIIUint32s writes values as plain decimal tokens grouped like
// WriteASCIIFloats.
func WriteASCIIUint32s(w io.Writer, values []uint32, fields int) error {
	return writeASCII(w, len(values), fields, func(dst []byte, i int) []byte {
		return strconv.AppendUint(dst, uint64(values[i]), 10)
	})
}

func writeASCII(w io.Writer, n, fields int, token func([]byte, int) []byte) error {
	if fields < 1 {
		fields = 1
	}
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for i := 0; i < n; i++ {
		buf = token(buf[:0], i)
		if (i+1)%fields == 0 {
			buf = append(buf, '\n')
		} else {
			buf = append(buf, ' ')
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// appendFloat formats v with FloatPrecision fractional digits. Non-finite
// values use the lowercase spellings of C's printf.
func appendFloat(dst []byte, v float32) []byte {
	f := float64(v)
	switch {
	case gomath.IsNaN(f):
		return append(dst, "nan"...)
	case gomath.IsInf(f, 1):
		return append(dst, "inf"...)
	case gomath.IsInf(f, -1):
		return append(dst, "-inf"...)
	}
	return strconv.AppendFloat(dst, f, 'f', FloatPrecision, 64)
}
