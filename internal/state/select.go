package state

// Select returns the value at path as T. It reports false when the path is
// absent or holds a different type.
func Select[T any](s *Store, path string) (T, bool) {
	var zero T
	v, ok := s.Get(path)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
