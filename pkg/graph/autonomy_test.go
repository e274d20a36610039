package graph

import (
	"testing"

	"github.com/loomwork/loom/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestShouldFreeze(t *testing.T) {
	cases := []struct {
		autonomy config.Autonomy
		point    FreezePoint
		want     bool
	}{
		{config.AutonomyFull, FreezeFirstStrategic, false},
		{config.AutonomyFull, FreezeJobComplete, false},

		{config.AutonomyReview, FreezeFirstStrategic, false},
		{config.AutonomyReview, FreezeLaterStrategic, false},
		{config.AutonomyReview, FreezeTactical, false},
		{config.AutonomyReview, FreezeJobComplete, true},

		{config.AutonomyPartial, FreezeFirstStrategic, true},
		{config.AutonomyPartial, FreezeLaterStrategic, false},
		{config.AutonomyPartial, FreezeTactical, false},
		{config.AutonomyPartial, FreezeJobComplete, true},

		{config.AutonomyGuided, FreezeFirstStrategic, true},
		{config.AutonomyGuided, FreezeLaterStrategic, true},
		{config.AutonomyGuided, FreezeTactical, false},
		{config.AutonomyGuided, FreezeJobComplete, true},

		{config.AutonomyDependent, FreezeFirstStrategic, true},
		{config.AutonomyDependent, FreezeLaterStrategic, true},
		{config.AutonomyDependent, FreezeTactical, true},
		{config.AutonomyDependent, FreezeJobComplete, true},
	}

	for _, tc := range cases {
		got := ShouldFreeze(tc.autonomy, tc.point)
		assert.Equalf(t, tc.want, got, "autonomy=%s point=%s", tc.autonomy, tc.point)
	}
}
