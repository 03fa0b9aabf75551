package options

// LoaderOptions controls how a Loader validates what engines hand back.
type LoaderOptions struct {
	// MaxSamples caps width*height*depth of any decoded image. 0 means no cap.
	MaxSamples int64

	// StrictDepth turns a forced depth that the engine did not honour into a
	// decode error instead of a warning.
	StrictDepth bool
}

func NewLoaderOptions(options *LoaderOptions) *LoaderOptions {

	opt := &LoaderOptions{}
	if options != nil {
		opt.MaxSamples = options.MaxSamples
		opt.StrictDepth = options.StrictDepth
	}
	if opt.MaxSamples < 0 {
		opt.MaxSamples = 0
	}
	return opt
}
