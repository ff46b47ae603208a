package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-maintenance/internal/db"
)

// Recomputer re-evaluates one vehicle's maintenance state.
type Recomputer interface {
	Recompute(ctx context.Context, vehicleID string) error
}

// Sweeper periodically re-runs the recomputation pass for every vehicle
// to catch mileage and calendar drift that happens without a new
// maintenance record. One vehicle's failure never aborts the batch.
type Sweeper struct {
	engine   Recomputer
	vehicles db.VehicleCollection
	workers  int
}

// NewSweeper creates a sweeper with a bounded worker pool.
func NewSweeper(engine Recomputer, vehicles db.VehicleCollection, workers int) *Sweeper {
	if workers < 1 {
		workers = 1
	}
	return &Sweeper{engine: engine, vehicles: vehicles, workers: workers}
}

// Sweep recomputes every vehicle once, processing them concurrently with
// the configured number of workers. Returns the number of failures.
func (s *Sweeper) Sweep(ctx context.Context) int {
	ids, err := s.vehicles.ListVehicleIDs(ctx)
	if err != nil {
		log.WithError(err).Error("Sweep: failed to list vehicles")
		return 0
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := s.engine.Recompute(ctx, id); err != nil {
					log.WithError(err).WithField("vehicle_id", id).Error("Sweep: recompute failed")
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return failed
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	log.WithFields(log.Fields{
		"vehicles": len(ids),
		"failed":   failed,
	}).Info("Sweep completed")
	return failed
}

// Start schedules periodic sweeps using a cron expression and returns the
// running cron so the caller can stop it on shutdown.
func (s *Sweeper) Start(ctx context.Context, cronSpec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(cronSpec, func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	log.WithField("schedule", cronSpec).Info("Recompute sweep scheduled")
	return c, nil
}
