package wavg

import "errors"

var (
	// ErrBadParam is returned for invocation parameters that cannot be used,
	// such as a non-positive weight normalisation constant.
	ErrBadParam = errors.New("wavg: bad parameter")

	// ErrShape is returned when a batch buffer does not have the length the
	// parameters imply.
	ErrShape = errors.New("wavg: buffer shape mismatch")

	// ErrVariant is returned when the structural variant does not match the
	// layout or the batch, e.g. volumetric data without z translations.
	ErrVariant = errors.New("wavg: variant mismatch")
)
