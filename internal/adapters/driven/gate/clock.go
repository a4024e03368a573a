package gate

import "time"

// Clock provides time functionality for testing.
type Clock interface {
	Now() time.Time
}

// RealClock uses the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// StoreOption configures a token store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	clock Clock
}

func newStoreOptions(opts []StoreOption) *storeOptions {
	o := &storeOptions{clock: RealClock{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithClock sets a custom clock for issuing and checking expiry.
func WithClock(clock Clock) StoreOption {
	return func(o *storeOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}
