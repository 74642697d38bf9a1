package ingest

import "errors"

// ErrInvalidBatchSize is returned when a batch size below 1 is requested.
var ErrInvalidBatchSize = errors.New("batch size must be at least 1")

// Batch splits items into order-preserving groups of size elements, with the
// remainder in the last group.
func Batch[T any](items []T, size int) ([][]T, error) {
	if size < 1 {
		return nil, ErrInvalidBatchSize
	}

	if len(items) == 0 {
		return nil, nil
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches, nil
}
