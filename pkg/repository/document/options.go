package document

import "github.com/nimburion/documentdb/pkg/observability/logger"

// Option configures a repository.
type Option func(*options)

type options struct {
	log          logger.Logger
	container    string
	maxItemCount int
}

func newOptions(opts []Option) options {
	o := options{log: logger.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for operation diagnostics.
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithContainer names the container in logs.
func WithContainer(name string) Option {
	return func(o *options) { o.container = name }
}

// WithMaxItemCount caps the documents fetched per store round trip. By default a
// query fetches one page worth of documents per round trip.
func WithMaxItemCount(n int) Option {
	return func(o *options) { o.maxItemCount = n }
}
