package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentkernel/core"
)

func TestSimulate_Defaults(t *testing.T) {
	e := NewEngine(func(o *Options) { o.RandSeed = 1 })

	run := e.Simulate(SimState{Label: "start", Reward: 0.1}, func(s SimState) []SimState {
		return []SimState{
			{Label: s.Label + ">a", Reward: 0.2},
			{Label: s.Label + ">b", Reward: 0.5},
		}
	}, SimulateOptions{})

	require.NotNil(t, run)
	assert.Len(t, run.Trajectories, 10)
	for _, traj := range run.Trajectories {
		assert.LessOrEqual(t, len(traj.States), 20)
		assert.Equal(t, "start", traj.States[0].Label)
	}
}

func TestSimulate_TrajectoriesSortedBestFirst(t *testing.T) {
	e := NewEngine(func(o *Options) { o.RandSeed = 2 })

	run := e.Simulate(SimState{Label: "s", Reward: 0}, func(s SimState) []SimState {
		return []SimState{
			{Label: "low", Reward: 0.1},
			{Label: "high", Reward: 0.9},
		}
	}, SimulateOptions{NumTrajectories: 8, MaxSteps: 5})

	for i := 1; i < len(run.Trajectories); i++ {
		assert.GreaterOrEqual(t, run.Trajectories[i-1].TotalReward, run.Trajectories[i].TotalReward)
	}
	assert.InDelta(t, run.Trajectories[0].TotalReward, run.BestTrajectory.TotalReward, 1e-9)

	sum := 0.0
	for _, traj := range run.Trajectories {
		sum += traj.TotalReward
	}
	assert.InDelta(t, sum/float64(len(run.Trajectories)), run.ExpectedReward, 1e-9)
}

func TestSimulate_TerminalStateEndsTrajectory(t *testing.T) {
	e := NewEngine()

	run := e.Simulate(SimState{Label: "root", Reward: 1.0}, func(s SimState) []SimState {
		if s.Label == "end" {
			return nil
		}
		return []SimState{{Label: "end", Reward: 2.0}}
	}, SimulateOptions{NumTrajectories: 3, MaxSteps: 50})

	for _, traj := range run.Trajectories {
		require.Len(t, traj.States, 2)
		assert.InDelta(t, 3.0, traj.TotalReward, 1e-9)
	}
	assert.InDelta(t, 3.0, run.ExpectedReward, 1e-9)
}

func TestSimulate_NilTransition(t *testing.T) {
	e := NewEngine()
	run := e.Simulate(SimState{Label: "only", Reward: 0.4}, nil, SimulateOptions{NumTrajectories: 2})

	require.Len(t, run.Trajectories, 2)
	assert.Len(t, run.Trajectories[0].States, 1)
	assert.InDelta(t, 0.4, run.ExpectedReward, 1e-9)
}

func TestSimulate_EmitsAndStores(t *testing.T) {
	e := NewEngine()
	emitted := 0
	e.Subscribe(core.EventSimulated, func(any) { emitted++ })

	run := e.Simulate(SimState{Label: "x"}, nil, SimulateOptions{NumTrajectories: 1})
	assert.Equal(t, 1, emitted)

	got := e.GetSimulation(run.ID)
	require.NotNil(t, got)
	assert.Equal(t, run.ID, got.ID)
	assert.Nil(t, e.GetSimulation("missing"))

	assert.Equal(t, int64(1), e.GetStats().TotalSimulations)
}
