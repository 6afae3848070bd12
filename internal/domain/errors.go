package domain

import "errors"

var (
	// ErrActivityNotFound is returned when processing is requested for an
	// unknown activity id.
	ErrActivityNotFound = errors.New("activity not found")

	// ErrAggregationFailed indicates the daily rollup could not be
	// recomputed. Per-activity metrics and insights committed before it are
	// not rolled back.
	ErrAggregationFailed = errors.New("daily stats aggregation failed")
)
