package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const classMagic = 0xCAFEBABE

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string, opts Options) (*ClassFile, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ParseWithOptions(f, opts)
}

// Parse reads a .class file from the given reader and returns a ClassFile.
// Format warnings are logged and otherwise ignored.
func Parse(r io.Reader) (*ClassFile, error) {
	cf, _, err := ParseWithOptions(r, Options{})
	return cf, err
}

// ParseWithOptions reads a .class file and also returns the format warnings
// reported while decoding attributes.
func ParseWithOptions(r io.Reader, opts Options) (*ClassFile, []error, error) {
	cf := &ClassFile{}

	// Magic number
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, nil, fmt.Errorf("reading magic number: %w", err)
	}
	if magic != classMagic {
		return nil, nil, fmt.Errorf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}

	// Version
	if err := binary.Read(r, binary.BigEndian, &cf.MinorVersion); err != nil {
		return nil, nil, fmt.Errorf("reading minor version: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.MajorVersion); err != nil {
		return nil, nil, fmt.Errorf("reading major version: %w", err)
	}

	// Constant pool
	var cpCount uint16
	if err := binary.Read(r, binary.BigEndian, &cpCount); err != nil {
		return nil, nil, fmt.Errorf("reading constant pool count: %w", err)
	}
	pool, err := parseConstantPool(r, cpCount)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing constant pool: %w", err)
	}
	cf.ConstantPool = pool
	d := NewDecoder(pool, opts)

	// Access flags, this_class, super_class
	if err := binary.Read(r, binary.BigEndian, &cf.AccessFlags); err != nil {
		return nil, nil, fmt.Errorf("reading access flags: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.ThisClass); err != nil {
		return nil, nil, fmt.Errorf("reading this_class: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.SuperClass); err != nil {
		return nil, nil, fmt.Errorf("reading super_class: %w", err)
	}

	// Interfaces
	var interfacesCount uint16
	if err := binary.Read(r, binary.BigEndian, &interfacesCount); err != nil {
		return nil, nil, fmt.Errorf("reading interfaces count: %w", err)
	}
	cf.Interfaces = make([]uint16, interfacesCount)
	for i := uint16(0); i < interfacesCount; i++ {
		if err := binary.Read(r, binary.BigEndian, &cf.Interfaces[i]); err != nil {
			return nil, nil, fmt.Errorf("reading interface %d: %w", i, err)
		}
	}

	// Fields
	var fieldsCount uint16
	if err := binary.Read(r, binary.BigEndian, &fieldsCount); err != nil {
		return nil, nil, fmt.Errorf("reading fields count: %w", err)
	}
	cf.Fields = make([]FieldInfo, fieldsCount)
	for i := range cf.Fields {
		m, err := parseMember(r, d)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing field %d: %w", i, err)
		}
		cf.Fields[i] = FieldInfo(m)
	}

	// Methods
	var methodsCount uint16
	if err := binary.Read(r, binary.BigEndian, &methodsCount); err != nil {
		return nil, nil, fmt.Errorf("reading methods count: %w", err)
	}
	cf.Methods = make([]MethodInfo, methodsCount)
	for i := range cf.Methods {
		m, err := parseMember(r, d)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing method %d: %w", i, err)
		}
		cf.Methods[i] = MethodInfo{
			AccessFlags:     m.AccessFlags,
			NameIndex:       m.NameIndex,
			DescriptorIndex: m.DescriptorIndex,
			Name:            m.Name,
			Descriptor:      m.Descriptor,
			Attributes:      m.Attributes,
			Code:            findCode(m.Attributes),
		}
	}

	// Class-level attributes
	cf.Attributes, err = d.ReadAttributes(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing class attributes: %w", err)
	}

	return cf, d.Warnings(), nil
}

type member struct {
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	Name            string
	Descriptor      string
	Attributes      []Attribute
}

// parseMember reads a field_info or method_info; both share one layout.
func parseMember(r io.Reader, d *Decoder) (member, error) {
	var m member
	if err := binary.Read(r, binary.BigEndian, &m.AccessFlags); err != nil {
		return m, fmt.Errorf("reading access flags: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &m.NameIndex); err != nil {
		return m, fmt.Errorf("reading name index: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &m.DescriptorIndex); err != nil {
		return m, fmt.Errorf("reading descriptor index: %w", err)
	}

	var err error
	if m.Name, err = d.pool.GetUtf8(m.NameIndex); err != nil {
		return m, fmt.Errorf("resolving name: %w", err)
	}
	if m.Descriptor, err = d.pool.GetUtf8(m.DescriptorIndex); err != nil {
		return m, fmt.Errorf("resolving descriptor: %w", err)
	}

	if m.Attributes, err = d.ReadAttributes(r); err != nil {
		return m, fmt.Errorf("parsing attributes of %s: %w", m.Name, err)
	}
	return m, nil
}

func findCode(attrs []Attribute) *Code {
	for _, a := range attrs {
		if code, ok := a.(*Code); ok {
			return code
		}
	}
	return nil
}

// ClassName returns the fully qualified name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return cf.ConstantPool.GetClassName(cf.ThisClass)
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindMethodByName finds a method by name only (first match).
func (cf *ClassFile) FindMethodByName(name string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindField finds a field by name.
func (cf *ClassFile) FindField(name string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name {
			return &cf.Fields[i]
		}
	}
	return nil
}
