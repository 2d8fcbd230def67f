package generic

import (
	"fmt"
	"strings"

	"github.com/daimatz/classkit/pkg/classfile"
)

// Default class file version, the oldest the attribute set is valid for.
const (
	DefaultMajorVersion = 45
	DefaultMinorVersion = 3
)

// ClassGen collects the fields, methods and attributes of a class over one
// shared ConstantPoolGen.
type ClassGen struct {
	className  string
	superName  string
	fileName   string
	flags      classfile.AccessFlags
	interfaces []string
	cp         *ConstantPoolGen

	Major, Minor uint16

	fields  []*FieldGen
	methods []*MethodGen
	attrs   []classfile.Attribute
}

// NewClassGen returns a class named className. fileName may be empty, in
// which case no SourceFile attribute is emitted.
func NewClassGen(className, superName, fileName string, flags classfile.AccessFlags,
	interfaces []string, cp *ConstantPoolGen) *ClassGen {
	if cp == nil {
		cp = NewConstantPoolGen()
	}
	return &ClassGen{
		className:  strings.ReplaceAll(className, "/", "."),
		superName:  strings.ReplaceAll(superName, "/", "."),
		fileName:   fileName,
		flags:      flags,
		interfaces: append([]string(nil), interfaces...),
		cp:         cp,
		Major:      DefaultMajorVersion,
		Minor:      DefaultMinorVersion,
	}
}

// ClassName returns the dotted class name.
func (c *ClassGen) ClassName() string { return c.className }

// SuperName returns the dotted superclass name, empty when there is none.
func (c *ClassGen) SuperName() string { return c.superName }

// FileName returns the source file name, empty when none was given.
func (c *ClassGen) FileName() string { return c.fileName }

// ConstantPool returns the generator shared by every member of the class.
func (c *ClassGen) ConstantPool() *ConstantPoolGen { return c.cp }

// AddInterface declares an implemented interface, dotted or internal.
func (c *ClassGen) AddInterface(name string) {
	c.interfaces = append(c.interfaces, name)
}

// AddField appends f. f must use the class's constant pool.
func (c *ClassGen) AddField(f *FieldGen) error {
	if f.ConstantPool() != c.cp {
		return fmt.Errorf("field %s: constant pool differs from class %s", f.Name(), c.className)
	}
	c.fields = append(c.fields, f)
	return nil
}

// AddMethod appends m. m must use the class's constant pool.
func (c *ClassGen) AddMethod(m *MethodGen) error {
	if m.ConstantPool() != c.cp {
		return fmt.Errorf("method %s: constant pool differs from class %s", m.Name(), c.className)
	}
	c.methods = append(c.methods, m)
	return nil
}

// AddAttribute appends a class level attribute.
func (c *ClassGen) AddAttribute(a classfile.Attribute) {
	c.attrs = append(c.attrs, a)
}

// Fields returns the fields in insertion order.
func (c *ClassGen) Fields() []*FieldGen { return append([]*FieldGen(nil), c.fields...) }

// Methods returns the methods in insertion order.
func (c *ClassGen) Methods() []*MethodGen { return append([]*MethodGen(nil), c.methods...) }

// ContainsMethod returns the method with the given name and descriptor.
func (c *ClassGen) ContainsMethod(name, sig string) *MethodGen {
	for _, m := range c.methods {
		if m.Name() == name && m.Signature() == sig {
			return m
		}
	}
	return nil
}

// JavaClass builds the class file. Every name the class needs is added to
// the constant pool first, so the returned pool is complete.
func (c *ClassGen) JavaClass() (*classfile.ClassFile, error) {
	thisIndex, err := c.cp.AddClass(c.className)
	if err != nil {
		return nil, fmt.Errorf("adding this_class: %w", err)
	}
	var superIndex uint16
	if c.superName != "" {
		if superIndex, err = c.cp.AddClass(c.superName); err != nil {
			return nil, fmt.Errorf("adding super_class: %w", err)
		}
	}
	cf := &classfile.ClassFile{
		MinorVersion: c.Minor,
		MajorVersion: c.Major,
		ConstantPool: c.cp.ConstantPool(),
		AccessFlags:  c.flags,
		ThisClass:    thisIndex,
		SuperClass:   superIndex,
	}
	for _, name := range c.interfaces {
		idx, err := c.cp.AddClass(name)
		if err != nil {
			return nil, fmt.Errorf("adding interface %s: %w", name, err)
		}
		cf.Interfaces = append(cf.Interfaces, idx)
	}
	for _, f := range c.fields {
		info, err := f.Field()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name(), err)
		}
		cf.Fields = append(cf.Fields, info)
	}
	for _, m := range c.methods {
		info, err := m.Method()
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name(), err)
		}
		cf.Methods = append(cf.Methods, info)
	}

	cf.Attributes = append([]classfile.Attribute(nil), c.attrs...)
	if c.fileName != "" {
		nameIndex, err := c.cp.AddUtf8(classfile.NameSourceFile)
		if err != nil {
			return nil, err
		}
		fileIndex, err := c.cp.AddUtf8(c.fileName)
		if err != nil {
			return nil, err
		}
		cf.Attributes = append(cf.Attributes, classfile.NewSourceFile(nameIndex, fileIndex, c.cp.ConstantPool()))
	}
	return cf, nil
}
