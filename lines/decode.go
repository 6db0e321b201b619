package lines

import (
	"encoding/binary"
	"math"
	"strconv"
)

const (
	headerPrefix = "reMarkable .lines file, version="
	headerSize   = 43

	segmentSize  = 6 * 4
	strokeSizeV3 = 5 * 4
	strokeSizeV5 = 6 * 4
	pageRecord   = 4
)

// reader is a bounds checked little-endian cursor over an ink buffer.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) need(n int, what string) error {
	if r.remaining() < n {
		return &FormatError{Offset: r.pos, Reason: "unexpected end of data reading " + what}
	}
	return nil
}

func (r *reader) u8(what string) (uint8, error) {
	if err := r.need(1, what); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u32(what string) (uint32, error) {
	if err := r.need(4, what); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) f32(what string) (float64, error) {
	bits, err := r.u32(what)
	if err != nil {
		return 0, err
	}
	return float64(math.Float32frombits(bits)), nil
}

func (r *reader) skip(n int, what string) error {
	if err := r.need(n, what); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// Decode parses a version 3 or 5 lines file. Layers come back unnamed and
// without highlights; see Load for the sidecar enrichment.
//
// Malformed data yields a *FormatError, an unknown version an
// *UnsupportedVersionError.
func Decode(data []byte) (int, []Layer, error) {
	version, err := readHeader(data)
	if err != nil {
		return 0, nil, err
	}

	r := &reader{data: data, pos: headerSize}

	// Page record: layer count in the first byte, three bytes unused.
	nLayers, err := r.u8("layer count")
	if err != nil {
		return version, nil, err
	}
	if err := r.skip(pageRecord-1, "page record"); err != nil {
		return version, nil, err
	}

	strokeSize := strokeSizeV5
	if version == 3 {
		strokeSize = strokeSizeV3
	}

	layers := make([]Layer, 0, nLayers)
	for i := 0; i < int(nLayers); i++ {
		strokes, err := readLayer(r, version, strokeSize)
		if err != nil {
			return version, nil, err
		}
		layers = append(layers, Layer{Strokes: strokes})
	}

	return version, layers, nil
}

func readHeader(data []byte) (int, error) {
	if len(data) < headerSize {
		return 0, &FormatError{Offset: len(data), Reason: "header too short"}
	}
	if string(data[:len(headerPrefix)]) != headerPrefix {
		return 0, &FormatError{Offset: 0, Reason: "bad header"}
	}
	version, err := strconv.Atoi(string(data[len(headerPrefix)]))
	if err != nil {
		return 0, &FormatError{Offset: len(headerPrefix), Reason: "bad version field"}
	}
	if version != 3 && version != 5 {
		return 0, &UnsupportedVersionError{Version: version}
	}
	return version, nil
}

func readLayer(r *reader, version, strokeSize int) ([]Stroke, error) {
	count, err := r.u32("stroke count")
	if err != nil {
		return nil, err
	}
	// every stroke needs at least its record and a segment count
	if uint64(count)*uint64(strokeSize) > uint64(r.remaining()) {
		return nil, &FormatError{Offset: r.pos, Reason: "stroke count exceeds data"}
	}

	strokes := make([]Stroke, 0, count)
	for i := uint32(0); i < count; i++ {
		s, err := readStroke(r, version)
		if err != nil {
			return nil, err
		}
		if len(s.Segments) == 0 {
			continue
		}
		strokes = append(strokes, s)
	}
	return strokes, nil
}

func readStroke(r *reader, version int) (Stroke, error) {
	var s Stroke

	pen, err := r.u32("stroke pen")
	if err != nil {
		return s, err
	}
	color, err := r.u32("stroke color")
	if err != nil {
		return s, err
	}
	if s.Unknown1, err = r.u32("stroke record"); err != nil {
		return s, err
	}
	if s.Width, err = r.f32("stroke width"); err != nil {
		return s, err
	}
	if version == 5 {
		if s.Unknown2, err = r.u32("stroke record"); err != nil {
			return s, err
		}
	}
	n, err := r.u32("segment count")
	if err != nil {
		return s, err
	}
	if uint64(n)*segmentSize > uint64(r.remaining()) {
		return s, &FormatError{Offset: r.pos, Reason: "segment count exceeds data"}
	}

	s.Pen = int(pen)
	s.Tool = ToolFor(s.Pen)
	s.Color = int(color)
	s.Segments = make([]Segment, n)
	for i := range s.Segments {
		seg := &s.Segments[i]
		// bounds were checked for the whole run above
		seg.X, _ = r.f32("segment")
		seg.Y, _ = r.f32("segment")
		seg.Speed, _ = r.f32("segment")
		seg.Direction, _ = r.f32("segment")
		seg.Width, _ = r.f32("segment")
		seg.Pressure, _ = r.f32("segment")
	}
	return s, nil
}
