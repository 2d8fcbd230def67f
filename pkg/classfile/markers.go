package classfile

import (
	"encoding/hex"
	"fmt"
)

// Synthetic marks a class member that does not appear in source code.
// Its payload is defined to be empty; any bytes found while decoding are
// kept so the record re-encodes unchanged.
type Synthetic struct {
	attrHeader
	Bytes []byte
}

// NewSynthetic returns a Synthetic attribute named by the Utf8 entry at
// nameIndex. bytes should normally be nil.
func NewSynthetic(nameIndex uint16, bytes []byte, pool *ConstantPool) *Synthetic {
	return &Synthetic{attrHeader: attrHeader{nameIndex: nameIndex, pool: pool}, Bytes: bytes}
}

func (a *Synthetic) Kind() AttrKind   { return AttrSynthetic }
func (a *Synthetic) Name() string     { return NameSynthetic }
func (a *Synthetic) Length() uint32   { return lengthOf(a) }
func (a *Synthetic) Accept(v Visitor) { v.VisitSynthetic(a) }

func (a *Synthetic) Copy(pool *ConstantPool) Attribute {
	c := *a
	c.Bytes = cloneBytes(a.Bytes)
	c.pool = pool
	return &c
}

func (a *Synthetic) String() string { return markerString(NameSynthetic, a.Bytes) }

func (a *Synthetic) encodePayload(w *writer) error {
	if len(a.Bytes) > 0 {
		w.bytes(a.Bytes)
	}
	return nil
}

// Deprecated marks a deprecated class, field or method. Like Synthetic its
// payload is defined to be empty.
type Deprecated struct {
	attrHeader
	Bytes []byte
}

// NewDeprecated returns a Deprecated attribute named by the Utf8 entry at
// nameIndex.
func NewDeprecated(nameIndex uint16, bytes []byte, pool *ConstantPool) *Deprecated {
	return &Deprecated{attrHeader: attrHeader{nameIndex: nameIndex, pool: pool}, Bytes: bytes}
}

func (a *Deprecated) Kind() AttrKind   { return AttrDeprecated }
func (a *Deprecated) Name() string     { return NameDeprecated }
func (a *Deprecated) Length() uint32   { return lengthOf(a) }
func (a *Deprecated) Accept(v Visitor) { v.VisitDeprecated(a) }

func (a *Deprecated) Copy(pool *ConstantPool) Attribute {
	c := *a
	c.Bytes = cloneBytes(a.Bytes)
	c.pool = pool
	return &c
}

func (a *Deprecated) String() string { return markerString(NameDeprecated, a.Bytes) }

func (a *Deprecated) encodePayload(w *writer) error {
	if len(a.Bytes) > 0 {
		w.bytes(a.Bytes)
	}
	return nil
}

func markerString(name string, b []byte) string {
	if len(b) == 0 {
		return name
	}
	return name + " " + hex.EncodeToString(b)
}

// decodeMarker reads an empty-by-definition attribute. A non-empty payload
// is preserved and reported as ErrUnexpectedPayload.
func (d *Decoder) decodeMarker(kind AttrKind, h attrHeader, p *payloadReader, data []byte) (Attribute, error) {
	var payload []byte
	if len(data) > 0 {
		if err := d.warn(fmt.Errorf("%w: %s attribute with length %d", ErrUnexpectedPayload, p.name, len(data))); err != nil {
			return nil, err
		}
		b, err := p.bytes(uint32(len(data)))
		if err != nil {
			return nil, err
		}
		payload = b
	}
	if kind == AttrDeprecated {
		return &Deprecated{attrHeader: h, Bytes: payload}, nil
	}
	return &Synthetic{attrHeader: h, Bytes: payload}, nil
}
