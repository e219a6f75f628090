package research

import (
	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// asGenerationError classifies a failed language model call. The result is
// not retryable: the retry budget has been spent by then.
func asGenerationError(msg string, err error) error {
	if core.IsCategory(err, core.ErrCatValidation) {
		return err
	}
	return wrapFinal(core.ErrGenerationFailed(msg), err)
}

// asRetrievalError classifies a failed search call.
func asRetrievalError(msg string, err error) error {
	return wrapFinal(core.ErrRetrievalFailed(msg), err)
}

func wrapFinal(e *core.DomainError, cause error) error {
	e.Retryable = false
	return e.WithCause(cause)
}
