package motion

import "errors"

// ErrOutOfOrder reports a raw sample whose timestamp precedes the previous
// accepted sample. The sample is dropped and filter state is unchanged.
var ErrOutOfOrder = errors.New("sample timestamp out of order")

// ErrSensorUnavailable reports that the velocity source kept failing after
// the configured retry budget. This is the only fatal pipeline error:
// without a sensor there is nothing to measure.
var ErrSensorUnavailable = errors.New("velocity sensor unavailable")
