package dicom

// Optional holds a value that may be absent from a data set
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns an Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an empty Optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether the value is present
func (o Optional[T]) Present() bool {
	return o.ok
}

// OrElse returns the value if present, or def otherwise
func (o Optional[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}
