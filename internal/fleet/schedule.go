package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/beward-tools/bewardctl/internal/logging"
)

// Schedule runs fn immediately and then every interval until ctx is
// cancelled. A sweep still running when the next tick fires is not
// overlapped; the tick is skipped.
func Schedule(ctx context.Context, every time.Duration, fn func(ctx context.Context)) error {
	if every <= 0 {
		return fmt.Errorf("invalid schedule interval %s", every)
	}

	cron := gocron.NewScheduler(time.Now().Location())
	cron.SingletonModeAll()

	_, err := cron.Every(every).Tag("sweep").Do(func() {
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	logging.Debug("sweep scheduled", zap.Duration("every", every))
	cron.StartAsync()
	<-ctx.Done()
	cron.Stop()
	return nil
}
