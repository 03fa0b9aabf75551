package image

// LoadResult is the outcome of a single decode. It is exactly one of
// *ErrorResult, *ImageU8 or *ImageF32; callers discriminate with a type switch:
//
//	switch r := res.(type) {
//	case *image.ErrorResult:
//	case *image.ImageU8:
//	case *image.ImageF32:
//	}
type LoadResult interface {
	isLoadResult()
}

// ErrorResult is a failed decode. Err is never nil.
type ErrorResult struct {
	Err error
}

func NewErrorResult(err error) *ErrorResult {
	return &ErrorResult{Err: err}
}

// Message is the human readable cause of the failure.
func (e *ErrorResult) Message() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *ErrorResult) Error() string {
	return e.Message()
}

func (e *ErrorResult) Unwrap() error {
	return e.Err
}

func (e *ErrorResult) isLoadResult() {}

// Split unpacks a LoadResult into at most one non-nil value.
func Split(res LoadResult) (*ImageU8, *ImageF32, error) {
	switch r := res.(type) {
	case *ImageU8:
		return r, nil, nil
	case *ImageF32:
		return nil, r, nil
	case *ErrorResult:
		return nil, nil, r
	}
	return nil, nil, NewErrorResult(nil)
}
