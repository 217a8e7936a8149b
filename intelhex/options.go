package intelhex

type options struct {
	typePolicy    TypePolicy
	compactOutput bool
	maxImageSize  uint64
}

type Option func(*options)

func WithTypePolicy(p TypePolicy) Option {
	return func(o *options) {
		o.typePolicy = p
	}
}

// WithCompactOutput starts the image at the lowest data address instead of
// address zero.
func WithCompactOutput() Option {
	return func(o *options) {
		o.compactOutput = true
	}
}

// DefaultMaxImageSize is the image size limit the command line tools apply
// unless told otherwise.
const DefaultMaxImageSize = 256 << 20

// WithMaxImageSize rejects inputs whose image would exceed n bytes. Zero
// means no limit.
func WithMaxImageSize(n uint64) Option {
	return func(o *options) {
		o.maxImageSize = n
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
