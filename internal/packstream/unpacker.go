package packstream

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Unpacker decodes PackStream bytes into Go values. The zero value is
// ready to use after Reset.
type Unpacker struct {
	buf  []byte
	off  int
	last any
}

// Reset points the unpacker at a new buffer, discarding any prior state.
func (u *Unpacker) Reset(buf []byte) {
	u.buf = buf
	u.off = 0
	u.last = nil
}

// Next decodes one complete top-level value (recursing through any nested
// containers) and remembers it for Len/StructTag.
func (u *Unpacker) Next() (any, error) {
	v, err := u.unpack()
	if err != nil {
		return nil, err
	}
	u.last = v
	return v, nil
}

// Len reports the element count of the most recently decoded container
// (struct field count, list/map size, string/byte length); 0 for scalars.
func (u *Unpacker) Len() int {
	switch x := u.last.(type) {
	case Struct:
		return len(x.Fields)
	case []any:
		return len(x)
	case map[string]any:
		return len(x)
	case string:
		return len(x)
	case []byte:
		return len(x)
	}
	return 0
}

// StructTag reports the tag of the most recently decoded Struct, if any.
func (u *Unpacker) StructTag() (byte, bool) {
	if s, ok := u.last.(Struct); ok {
		return s.Tag, true
	}
	return 0, false
}

func (u *Unpacker) readByte() (byte, error) {
	if u.off >= len(u.buf) {
		return 0, ErrEmpty
	}
	b := u.buf[u.off]
	u.off++
	return b, nil
}

func (u *Unpacker) readN(n int) ([]byte, error) {
	if n < 0 || u.off+n > len(u.buf) {
		return nil, ErrEmpty
	}
	b := u.buf[u.off : u.off+n]
	u.off += n
	return b, nil
}

func (u *Unpacker) readUint8() (uint8, error) {
	b, err := u.readByte()
	return b, err
}

func (u *Unpacker) readUint16() (uint16, error) {
	b, err := u.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (u *Unpacker) readUint32() (uint32, error) {
	b, err := u.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (u *Unpacker) unpack() (any, error) {
	marker, err := u.readByte()
	if err != nil {
		return nil, err
	}
	switch {
	case marker == markerNullByte:
		return nil, nil
	case marker == markerFalse:
		return false, nil
	case marker == markerTrue:
		return true, nil
	case marker == markerFloat64:
		b, err := u.readN(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case marker == markerInt8:
		b, err := u.readByte()
		if err != nil {
			return nil, err
		}
		return int64(int8(b)), nil
	case marker == markerInt16:
		b, err := u.readUint16()
		if err != nil {
			return nil, err
		}
		return int64(int16(b)), nil
	case marker == markerInt32:
		b, err := u.readUint32()
		if err != nil {
			return nil, err
		}
		return int64(int32(b)), nil
	case marker == markerInt64:
		b, err := u.readN(8)
		if err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case marker >= 0xF0 || marker <= 0x7F:
		// tiny int: the marker byte itself is the signed value.
		return int64(int8(marker)), nil
	case marker == markerBytes8, marker == markerBytes16, marker == markerBytes32:
		n, err := u.readContainerSize(marker, markerBytes8, markerBytes16, markerBytes32)
		if err != nil {
			return nil, err
		}
		b, err := u.readN(n)
		if err != nil {
			return nil, err
		}
		cp := make([]byte, n)
		copy(cp, b)
		return cp, nil
	case marker&0xF0 == tinyStringMarker, marker == markerString8, marker == markerString16, marker == markerString32:
		n, err := u.readContainerSize(marker, markerString8, markerString16, markerString32)
		if err != nil {
			return nil, err
		}
		b, err := u.readN(n)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, ErrInvalidUTF8
		}
		return string(b), nil
	case marker&0xF0 == tinyListMarker, marker == markerList8, marker == markerList16, marker == markerList32:
		n, err := u.readContainerSize(marker, markerList8, markerList16, markerList32)
		if err != nil {
			return nil, err
		}
		list := make([]any, 0, n)
		for i := 0; i < n; i++ {
			v, err := u.unpack()
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case marker&0xF0 == tinyMapMarker, marker == markerMap8, marker == markerMap16, marker == markerMap32:
		n, err := u.readContainerSize(marker, markerMap8, markerMap16, markerMap32)
		if err != nil {
			return nil, err
		}
		m := make(map[string]any, n)
		for i := 0; i < n; i++ {
			k, err := u.unpack()
			if err != nil {
				return nil, err
			}
			ks, ok := k.(string)
			if !ok {
				return nil, ErrUnknownMarker
			}
			v, err := u.unpack()
			if err != nil {
				return nil, err
			}
			m[ks] = v
		}
		return m, nil
	case marker&0xF0 == tinyStructMarker:
		n := int(marker & 0x0F)
		tag, err := u.readByte()
		if err != nil {
			return nil, err
		}
		fields := make([]any, 0, n)
		for i := 0; i < n; i++ {
			v, err := u.unpack()
			if err != nil {
				return nil, err
			}
			fields = append(fields, v)
		}
		return Struct{Tag: tag, Fields: fields}, nil
	default:
		return nil, ErrUnknownMarker
	}
}

// readContainerSize reads the tiny/8/16/32-bit size that follows a
// container marker. marker has already been consumed from the stream.
func (u *Unpacker) readContainerSize(marker, m8, m16, m32 byte) (int, error) {
	switch {
	case marker == m8:
		n, err := u.readUint8()
		return int(n), err
	case marker == m16:
		n, err := u.readUint16()
		return int(n), err
	case marker == m32:
		n, err := u.readUint32()
		return int(n), err
	default:
		// tiny form: size is the low nibble of the marker.
		return int(marker & 0x0F), nil
	}
}
