package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("test not found")

type ListOpts struct {
	Q      string
	Limit  int
	Offset int
}

// Store is the engine's read-mostly view of the test catalog. GetTest serves
// candidates (no answer keys, published only); GetTestAdmin serves the scorer
// and administrators.
type Store interface {
	PutTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, id string) (Test, error)
	GetTestAdmin(ctx context.Context, id string) (Test, error)
	ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error)
}
