// Package decay runs the periodic stat degradation that makes creatures need
// care: hunger and love drain over time while tiredness builds up.
package decay

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/habii/habii-server/internal/database"
)

const DefaultInterval = time.Hour

type Worker struct {
	log      *log.Logger
	repo     database.HabiiRepository
	clock    clockwork.Clock
	interval time.Duration
}

func NewWorker(logger *log.Logger, repo database.HabiiRepository, clock clockwork.Clock, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Worker{
		log:      logger,
		repo:     repo,
		clock:    clock,
		interval: interval,
	}
}

// Run degrades creature stats once per interval until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Printf("decay: degrading stats every %s", w.interval)
	for {
		select {
		case <-ticker.Chan():
			n, err := w.repo.DegradeCreatureStats()
			if err != nil {
				w.log.Printf("decay: degrade stats: %s", err)
				continue
			}
			w.log.Printf("decay: degraded stats for %d creatures", n)
		case <-ctx.Done():
			w.log.Println("decay: stopping")
			return
		}
	}
}
