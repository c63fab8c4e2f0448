package xdata

// Key identifies a named, typed slot in a Record. It is implemented by
// ScalarKey and ListKey; callers never construct it directly.
type Key interface {
	Name() string
	allowNull() bool
}

type baseKey struct {
	name       string
	allowNull_ bool
}

func (k baseKey) Name() string    { return k.name }
func (k baseKey) allowNull() bool { return k.allowNull_ }

// ScalarKey describes a single value of type T stored under Name. A key
// created with NewScalarKey is mandatory: Get fails with ErrMissingKey if
// the record has no entry for it. NewOptionalScalarKey keys tolerate a
// missing or explicitly-null entry and fall back to a default.
type ScalarKey[T any] struct {
	baseKey
	def    T
	hasDef bool
}

func NewScalarKey[T any](name string) *ScalarKey[T] {
	return &ScalarKey[T]{baseKey: baseKey{name: name}}
}

func NewOptionalScalarKey[T any](name string, def T) *ScalarKey[T] {
	return &ScalarKey[T]{baseKey: baseKey{name: name, allowNull_: true}, def: def, hasDef: true}
}

// ListKey describes a homogeneous list of T stored under Name.
type ListKey[T any] struct {
	baseKey
}

func NewListKey[T any](name string) *ListKey[T] {
	return &ListKey[T]{baseKey{name: name, allowNull_: false}}
}

func NewOptionalListKey[T any](name string) *ListKey[T] {
	return &ListKey[T]{baseKey{name: name, allowNull_: true}}
}
