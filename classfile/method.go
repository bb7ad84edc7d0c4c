package classfile

// Method is a resolved method descriptor: the direct pointer a resolution
// caches in place of a symbolic "class X, method Y, descriptor D" reference.
//
// Method is a collaborator model. Class loading, bytecode verification and
// access checking all live upstream of the cache; Method only carries the
// fields the cache's decode and redefinition operations need to look at.
type Method struct {
	Holder        *Klass
	Name          string
	Descriptor    string
	IsStatic      bool
	IsFinal       bool
	IsPublic      bool
	ParameterSize uint8

	// VtableIndex is this method's slot in Holder.Vtable, assigned at link
	// time. Only meaningful for instance methods.
	VtableIndex int

	// Old marks a method that redefinition has superseded but that has not
	// yet been collected. check_no_old_entries uses this to flag caches
	// still pointing at stale methods.
	Old bool
}

// Itable is a single interface's method table, one entry per interface
// method slot, as installed in a class that implements the interface.
type Itable []*Method
