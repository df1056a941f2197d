package metrics

import "errors"

// ErrWriteMetrics is returned when the metrics textfile cannot be written.
var ErrWriteMetrics = errors.New("write metrics file")
