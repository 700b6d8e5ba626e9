package ingest

import (
	"context"
	"time"

	"github.com/AngelCh415/mmm-planner/internal/utils"
)

var defaultRetry = utils.NewBackoff(100*time.Millisecond, 2)

// GetJSONWithRetry fetches and decodes an enveloped JSON payload, retrying
// with exponential backoff and jitter.
func GetJSONWithRetry(ctx context.Context, c HTTPClient, retry utils.Backoff, url string, dst any) error {
	return retry.Do(ctx, func(int) error {
		return getJSON(ctx, c, url, dst)
	})
}
