package stage

import "errors"

var (
	// ErrInvalidIndex is returned for negative layer indices.
	ErrInvalidIndex = errors.New("stage: invalid layer index")

	// ErrNilProducer is returned by Load without a producer.
	ErrNilProducer = errors.New("stage: nil producer")

	// ErrNilTransform is returned when a transform function is missing.
	ErrNilTransform = errors.New("stage: nil transform function")

	// ErrNilConsumer is returned by AddLayerConsumer without a sink.
	ErrNilConsumer = errors.New("stage: nil layer consumer")

	// ErrNilTarget is returned by New without a target.
	ErrNilTarget = errors.New("stage: nil target")

	// ErrInvalidFormat is returned for formats without a raster or rate.
	ErrInvalidFormat = errors.New("stage: invalid video format")

	// ErrTickFailed wraps failures recovered while composing a tick.
	ErrTickFailed = errors.New("stage: tick failed")
)
