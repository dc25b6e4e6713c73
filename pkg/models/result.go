package models

// Result is the outcome of a transform: either a kept payload or a drop.
// A kept payload is never confused with "no fields".
type Result struct {
	kept    bool
	payload []byte
}

// Keep wraps a serialized payload
func Keep(payload []byte) Result {
	return Result{kept: true, payload: payload}
}

// Drop excludes the record from the normalized output
func Drop() Result {
	return Result{}
}

// Dropped reports whether the record should be excluded
func (r Result) Dropped() bool {
	return !r.kept
}

// Payload returns the serialized record, nil when dropped
func (r Result) Payload() []byte {
	return r.payload
}
