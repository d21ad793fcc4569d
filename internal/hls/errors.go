package hls

import "errors"

var (
	ErrProbeFailed          = errors.New("media probe failed")
	ErrStorageWrite         = errors.New("artifact write failed")
	ErrImportTimeout        = errors.New("import timed out")
	ErrImportBudgetExceeded = errors.New("import byte budget exceeded")
	ErrImportNetwork        = errors.New("import network failure")
	ErrMutationTimeout      = errors.New("hls mutation timed out")
	ErrQueueClosed          = errors.New("hls mutation queue closed")
)
