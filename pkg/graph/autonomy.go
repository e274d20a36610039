package graph

import "github.com/loomwork/loom/pkg/config"

// FreezePoint names a point in the phase loop where the autonomy gate might
// pause the job for human review.
type FreezePoint string

const (
	// FreezeFirstStrategic is the end of the job's first strategic phase.
	FreezeFirstStrategic FreezePoint = "first_strategic"
	// FreezeLaterStrategic is the end of any strategic phase after the first.
	FreezeLaterStrategic FreezePoint = "later_strategic"
	// FreezeTactical is the end of any tactical phase.
	FreezeTactical FreezePoint = "tactical"
	// FreezeJobComplete is a job_complete call, regardless of phase type.
	FreezeJobComplete FreezePoint = "job_complete"
)

// ShouldFreeze reports whether autonomy requires pausing for review at
// point. full never freezes (job_complete auto-completes); review freezes
// only at job_complete; partial adds the first strategic phase; guided adds
// every strategic phase; dependent freezes at every point.
func ShouldFreeze(autonomy config.Autonomy, point FreezePoint) bool {
	switch autonomy {
	case config.AutonomyFull:
		return false
	case config.AutonomyReview:
		return point == FreezeJobComplete
	case config.AutonomyPartial:
		return point == FreezeFirstStrategic || point == FreezeJobComplete
	case config.AutonomyGuided:
		return point == FreezeFirstStrategic || point == FreezeLaterStrategic || point == FreezeJobComplete
	case config.AutonomyDependent:
		return true
	default:
		return false
	}
}
