package pause

import "sync"

// Cause identifies why global time is paused. The pause screen and ad
// display each hold their own cause so one releasing never unpauses the
// other.
type Cause string

const (
	CausePauseScreen Cause = "pause_screen"
	CauseAdDisplay   Cause = "ad_display"
)

// Registry is a reference-counted set of active pause causes. Global pause
// is active iff the set is non-empty.
type Registry struct {
	mu       sync.Mutex
	causes   map[Cause]int
	onChange func(paused bool)
}

// NewRegistry creates an empty registry. onChange, when non-nil, is invoked
// whenever the paused flag flips; it is called outside the registry lock.
func NewRegistry(onChange func(paused bool)) *Registry {
	return &Registry{
		causes:   make(map[Cause]int),
		onChange: onChange,
	}
}

// Acquire adds a pause cause. Acquiring the same cause twice requires two
// releases.
func (r *Registry) Acquire(c Cause) {
	r.mu.Lock()
	wasEmpty := len(r.causes) == 0
	r.causes[c]++
	r.mu.Unlock()

	if wasEmpty && r.onChange != nil {
		r.onChange(true)
	}
}

// Release removes a pause cause. Releasing a cause that is not held is a
// no-op, so out-of-order callbacks cannot drive the count negative.
func (r *Registry) Release(c Cause) {
	r.mu.Lock()
	wasEmpty := len(r.causes) == 0
	if n, ok := r.causes[c]; ok {
		if n <= 1 {
			delete(r.causes, c)
		} else {
			r.causes[c] = n - 1
		}
	}
	nowEmpty := len(r.causes) == 0
	r.mu.Unlock()

	if !wasEmpty && nowEmpty && r.onChange != nil {
		r.onChange(false)
	}
}

// Paused reports whether any cause is active.
func (r *Registry) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.causes) > 0
}

// Held reports whether the given cause is active.
func (r *Registry) Held(c Cause) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.causes[c] > 0
}

// TimeScale returns the multiplier driven by the pause flag: 0 while paused,
// 1 otherwise.
func (r *Registry) TimeScale() float64 {
	if r.Paused() {
		return 0
	}
	return 1
}
