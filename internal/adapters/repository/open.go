package repository

import (
	"context"
	"fmt"

	"github.com/okian/kartboard/internal/domain/model"
)

// Open returns the store named by driver. The memory store starts with
// seed; the mongo store ignores it.
func Open(ctx context.Context, driver, uri string, seed model.Snapshot, opts ...MongoOption) (Store, error) {
	switch driver {
	case "", memoryStoreName:
		return NewMemoryStore(WithSnapshot(seed)), nil
	case mongoStoreName:
		s, err := NewMongoStore(ctx, uri, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", ErrInvalid, driver)
	}
}
