// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartBountySweeper runs the periodic bounty lifecycle sweep: active
// bounties past their expiry window become expired, and those that hit
// their budget or tree target become completed. Claims already created
// are untouched.
func (s *BountyService) StartBountySweeper() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			changed, err := s.Store.SweepBounties(context.Background(), time.Now())
			if err != nil {
				log.Printf("[Sweeper] bounty sweep error: %v", err)
				return
			}
			if changed > 0 {
				log.Printf("✅ [Sweeper] %d bounties moved to expired/completed", changed)
			}
		}),
	)
}
