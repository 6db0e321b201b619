package lines

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type testStroke struct {
	pen, color uint32
	width      float32
	segs       [][6]float32
}

// encodeLines writes a lines file the way the tablet firmware does.
func encodeLines(t *testing.T, version int, layers [][]testStroke) []byte {
	t.Helper()

	var buf bytes.Buffer
	header := fmt.Sprintf("reMarkable .lines file, version=%d          ", version)
	require.Len(t, header, headerSize)
	buf.WriteString(header)

	put := func(v interface{}) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	put(uint8(len(layers)))
	put([3]uint8{})
	for _, strokes := range layers {
		put(uint32(len(strokes)))
		for _, s := range strokes {
			put(s.pen)
			put(s.color)
			put(uint32(0))
			put(math.Float32bits(s.width))
			if version == 5 {
				put(uint32(0))
			}
			put(uint32(len(s.segs)))
			for _, seg := range s.segs {
				for _, v := range seg {
					put(math.Float32bits(v))
				}
			}
		}
	}
	return buf.Bytes()
}

func seg(x, y, width, pressure float32) [6]float32 {
	return [6]float32{x, y, 0.5, 0.25, width, pressure}
}
