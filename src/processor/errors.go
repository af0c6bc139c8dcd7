package processor

import (
	"errors"

	"AirQuality/src/config"
)

// Caller errors propagate unchanged; numeric coercion problems never reach
// this list because they are recovered as missing values.
var (
	ErrStationNotFound  = config.ErrStationNotFound
	ErrInvalidFamily    = config.ErrInvalidFamily
	ErrInvalidWindow    = errors.New("day range must be a positive integer")
	ErrInvalidFrequency = errors.New("unrecognized resampling frequency")
	ErrDuplicateEntry   = errors.New("duplicate pivot key")
	ErrMissingColumn    = errors.New("missing column")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyTable       = errors.New("empty table")
)
