// Package hook composes middleware of the form func(next T) T.
package hook

// Chain composes hooks so that the first hook is the outermost one.
// Returns nil when no non-nil hook is given.
func Chain[T any](hooks ...func(next T) T) func(next T) T {
	var nonNil []func(next T) T
	for _, h := range hooks {
		if h != nil {
			nonNil = append(nonNil, h)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	return func(next T) T {
		for i := len(nonNil) - 1; i >= 0; i-- {
			next = nonNil[i](next)
		}
		return next
	}
}

// Prepend puts hooks in front of an existing (possibly nil) hook.
func Prepend[T any](existing func(next T) T, hooks ...func(next T) T) func(next T) T {
	all := make([]func(next T) T, 0, len(hooks)+1)
	all = append(all, hooks...)
	return Chain(append(all, existing)...)
}
