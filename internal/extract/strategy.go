package extract

// Strategy is one heuristic attempt at producing a value. ok reports whether
// the heuristic matched.
type Strategy[T any] func() (value T, ok bool)

// FirstOf evaluates strategies in order and returns the first value whose
// strategy matched. The zero value and false are returned when none did.
func FirstOf[T any](strategies ...Strategy[T]) (T, bool) {
	for _, s := range strategies {
		if v, ok := s(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
