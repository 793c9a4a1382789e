package reconstruction

// ConsistentValue checks that key returns the same value for every item and
// returns the first item. Keys are compared with ==, so composite keys such as
// fixed size arrays are compared element by element with no tolerance.
//
// It fails with ErrEmptyInput when items is empty, or with an
// *InconsistentValueError carrying the first differing key in input order.
func ConsistentValue[T any, K comparable](items []T, attribute string, key func(T) K) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmptyInput
	}
	first := items[0]
	want := key(first)
	for _, item := range items[1:] {
		if got := key(item); got != want {
			return zero, &InconsistentValueError{Attribute: attribute, Value: got}
		}
	}
	return first, nil
}
