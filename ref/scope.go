package ref

import "partref/parts"

// With narrows r to want for the duration of fn, releasing the derived
// reference afterwards even when fn fails. The callee receives exactly
// the permissions it declared; r is unusable until fn returns.
func With[T any](r *Ref[T], want parts.Set, fn func(*Ref[T]) error) error {
	child, err := r.Narrow(want)
	if err != nil {
		return err
	}
	defer func() {
		_ = child.Release()
	}()
	return fn(child)
}

// WithShared reborrows the whole state downgraded to shared for the
// duration of fn.
func WithShared[T any](r *Ref[T], fn func(*Ref[T]) error) error {
	child, err := r.Borrow()
	if err != nil {
		return err
	}
	defer func() {
		_ = child.Release()
	}()
	return fn(child)
}

// WithMut reborrows the whole state unchanged for the duration of fn.
func WithMut[T any](r *Ref[T], fn func(*Ref[T]) error) error {
	child, err := r.BorrowMut()
	if err != nil {
		return err
	}
	defer func() {
		_ = child.Release()
	}()
	return fn(child)
}
