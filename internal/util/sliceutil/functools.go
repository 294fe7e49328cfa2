package sliceutil

func Map[T any, U any, F ~func(T) U](items []T, f F) []U {
	res := make([]U, len(items))
	for i, item := range items {
		res[i] = f(item)
	}
	return res
}

// Filter returns the items for which keep returns true, in their original order. The result is
// never nil.
func Filter[T any, F ~func(T) bool](items []T, keep F) []T {
	res := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			res = append(res, item)
		}
	}
	return res
}

func Count[T any, F ~func(T) bool](items []T, f F) int {
	n := 0
	for _, item := range items {
		if f(item) {
			n++
		}
	}
	return n
}
