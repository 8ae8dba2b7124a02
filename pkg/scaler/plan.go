package scaler

import (
	"fmt"
	"github.com/coopernurse/esscale/pkg/common"
)

var DefaultLimits = Limits{
	MinInstanceCount: 3,
	MaxInstanceCount: 6,
	MinReplicasCount: 1,
}

type Limits struct {
	MinInstanceCount int64
	MaxInstanceCount int64
	MinReplicasCount int64
}

type ScalePlan struct {
	NewInstanceCount int64
	NewReplicasCount int64
}

func (p ScalePlan) String() string {
	return fmt.Sprintf("instances=%d replicas=%d", p.NewInstanceCount, p.NewReplicasCount)
}

// StepSize is the number of instances removed by one scale down step.
func StepSize(currentInstanceCount int64) int64 {
	if currentInstanceCount <= 4 || currentInstanceCount%2 == 0 {
		return 1
	}
	return 2
}

// ComputeScalePlan maps the current instance count and direction to a new
// topology. Scale up always targets MaxInstanceCount. Scale down removes one
// step and is clamped against MaxInstanceCount only; callers refuse scale down
// at or below MinInstanceCount before getting here.
func (l Limits) ComputeScalePlan(currentInstanceCount int64, scaleType ScaleType) ScalePlan {
	var newInstanceCount int64
	if scaleType == ScaleTypeUp {
		newInstanceCount = l.MaxInstanceCount
	} else {
		newInstanceCount = common.MinInt64(currentInstanceCount-StepSize(currentInstanceCount), l.MaxInstanceCount)
	}
	return ScalePlan{
		NewInstanceCount: newInstanceCount,
		NewReplicasCount: l.replicasFor(newInstanceCount),
	}
}

func (l Limits) replicasFor(instanceCount int64) int64 {
	balanced := instanceCount/2 - 1
	return common.MaxInt64(l.MinReplicasCount, balanced)
}

// resetPlan is the plan used for every scale down request.
func (l Limits) resetPlan() ScalePlan {
	return ScalePlan{
		NewInstanceCount: l.MinInstanceCount,
		NewReplicasCount: l.MinReplicasCount,
	}
}
