package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// field — одно поле protobuf-сообщения после разбора тега.
type field struct {
	num protowire.Number
	typ protowire.Type
	raw []byte // для BytesType
	u64 uint64 // для varint / fixed
}

type unmarshaler interface {
	Unmarshal([]byte) error
}

// eachField проходит по всем полям сообщения. Неизвестные поля
// пропускаются вызывающей стороной (visit просто их игнорирует).
func eachField(b []byte, visit func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u64, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.u64 = uint64(v)
		case protowire.Fixed64Type:
			f.u64, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.raw, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) wireErr(want protowire.Type) error {
	return fmt.Errorf("field %d: wire type %d, want %d", f.num, f.typ, want)
}

func (f field) str() (string, error) {
	if f.typ != protowire.BytesType {
		return "", f.wireErr(protowire.BytesType)
	}
	return string(f.raw), nil
}

func (f field) bytes() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, f.wireErr(protowire.BytesType)
	}
	out := make([]byte, len(f.raw))
	copy(out, f.raw)
	return out, nil
}

func (f field) uint() (uint64, error) {
	switch f.typ {
	case protowire.VarintType, protowire.Fixed32Type, protowire.Fixed64Type:
		return f.u64, nil
	}
	return 0, f.wireErr(protowire.VarintType)
}

func (f field) int64() (int64, error) {
	v, err := f.uint()
	return int64(v), err
}

func (f field) int32() (int32, error) {
	v, err := f.uint()
	return int32(v), err
}

func (f field) bool() (bool, error) {
	v, err := f.uint()
	return v != 0, err
}

// sub разбирает вложенное сообщение.
func sub[T any, PT interface {
	*T
	unmarshaler
}](f field) (PT, error) {
	if f.typ != protowire.BytesType {
		return nil, f.wireErr(protowire.BytesType)
	}
	m := PT(new(T))
	if err := m.Unmarshal(f.raw); err != nil {
		return nil, fmt.Errorf("field %d: %w", f.num, err)
	}
	return m, nil
}

// mapEntry разбирает запись map<string,string> (key=1, value=2).
func mapEntry(f field, into map[string]string) error {
	if f.typ != protowire.BytesType {
		return f.wireErr(protowire.BytesType)
	}
	var k, v string
	err := eachField(f.raw, func(e field) (err error) {
		switch e.num {
		case 1:
			k, err = e.str()
		case 2:
			v, err = e.str()
		}
		return err
	})
	if err != nil {
		return err
	}
	into[k] = v
	return nil
}

// ========================= encode =========================

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

func appendMap(b []byte, num protowire.Number, m map[string]string) []byte {
	for k, v := range m {
		var entry []byte
		entry = appendString(entry, 1, k)
		entry = appendString(entry, 2, v)
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func appendMessage(b []byte, num protowire.Number, m interface{ Marshal() []byte }) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.Marshal())
}
