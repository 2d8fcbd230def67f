package classfile

// Visitor receives one call per attribute kind from Attribute.Accept.
type Visitor interface {
	VisitSynthetic(a *Synthetic)
	VisitDeprecated(a *Deprecated)
	VisitSourceFile(a *SourceFile)
	VisitConstantValue(a *ConstantValue)
	VisitSignature(a *Signature)
	VisitExceptions(a *Exceptions)
	VisitCode(a *Code)
	VisitLineNumberTable(a *LineNumberTable)
	VisitBootstrapMethods(a *BootstrapMethods)
	VisitUnknown(a *Unknown)
}

// EmptyVisitor implements Visitor with no-op methods. Embed it to handle
// only some kinds.
type EmptyVisitor struct{}

func (EmptyVisitor) VisitSynthetic(*Synthetic)               {}
func (EmptyVisitor) VisitDeprecated(*Deprecated)             {}
func (EmptyVisitor) VisitSourceFile(*SourceFile)             {}
func (EmptyVisitor) VisitConstantValue(*ConstantValue)       {}
func (EmptyVisitor) VisitSignature(*Signature)               {}
func (EmptyVisitor) VisitExceptions(*Exceptions)             {}
func (EmptyVisitor) VisitCode(*Code)                         {}
func (EmptyVisitor) VisitLineNumberTable(*LineNumberTable)   {}
func (EmptyVisitor) VisitBootstrapMethods(*BootstrapMethods) {}
func (EmptyVisitor) VisitUnknown(*Unknown)                   {}

// Walk calls Accept on each attribute, descending into the attributes of
// Code bodies after visiting the Code attribute itself.
func Walk(v Visitor, attrs ...Attribute) {
	for _, a := range attrs {
		a.Accept(v)
		if code, ok := a.(*Code); ok {
			Walk(v, code.Attributes...)
		}
	}
}

// WalkClass walks the attributes of the class, then of each field, then of
// each method.
func WalkClass(v Visitor, cf *ClassFile) {
	Walk(v, cf.Attributes...)
	for i := range cf.Fields {
		Walk(v, cf.Fields[i].Attributes...)
	}
	for i := range cf.Methods {
		Walk(v, cf.Methods[i].Attributes...)
	}
}
