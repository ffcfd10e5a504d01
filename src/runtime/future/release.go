package future

type deferred struct {
	after Future
	fn    func()
}

// Releaser defers destruction of resources until the GPU work that may still
// read them has completed.
type Releaser struct {
	pending []deferred
}

// After schedules fn to run once f is done. A nil future runs fn immediately.
func (r *Releaser) After(f Future, fn func()) {
	if f == nil {
		fn()
		return
	}
	r.pending = append(r.pending, deferred{after: f, fn: fn})
}

// Collect runs every hook whose future completed. It never blocks.
func (r *Releaser) Collect() {
	pending := r.pending
	r.pending = nil
	for _, d := range pending {
		if d.after.Done() {
			d.fn()
			continue
		}
		r.pending = append(r.pending, d)
	}
}

// Flush runs every pending hook. Callers wait for the device to go idle first.
func (r *Releaser) Flush() {
	pending := r.pending
	r.pending = nil
	for _, d := range pending {
		d.fn()
	}
}

func (r *Releaser) Len() int {
	return len(r.pending)
}
