package signals

import (
	"context"
	"os"
)

// WaitFor exposes wait for a custom signal set.
func WaitFor(ctx context.Context, sigs ...os.Signal) (os.Signal, error) {
	return wait(ctx, Once(sigs...))
}
