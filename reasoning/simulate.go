package reasoning

import (
	"sort"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

// SimState is one state visited during a Monte-Carlo rollout. Reward is the
// contribution of visiting this state to the trajectory's total.
type SimState struct {
	Label  string  `json:"label"`
	Reward float64 `json:"reward"`
}

// Transition produces the candidate successor states of a state. An empty
// result marks the state terminal.
type Transition func(state SimState) []SimState

// Trajectory is one rollout: the visited states in order and the sum of
// their rewards.
type Trajectory struct {
	States      []SimState `json:"states"`
	TotalReward float64    `json:"total_reward"`
}

// SimulationRun is the stored result of one Simulate call. Trajectories are
// sorted descending by total reward; BestTrajectory is trajectories[0] and
// ExpectedReward is the mean total reward.
type SimulationRun struct {
	ID             string       `json:"id"`
	Trajectories   []Trajectory `json:"trajectories"`
	BestTrajectory Trajectory   `json:"best_trajectory"`
	ExpectedReward float64      `json:"expected_reward"`
	CreatedAt      time.Time    `json:"created_at"`
}

// SimulateOptions refines Simulate. Zero values fall back to defaults
// (NumTrajectories 10, MaxSteps 20).
type SimulateOptions struct {
	NumTrajectories int
	MaxSteps        int
}

// Simulate performs Monte-Carlo rollouts from the initial state. For each
// trajectory the engine repeatedly picks one of the transition's candidate
// successors at random until the state is terminal or MaxSteps is reached.
func (e *Engine) Simulate(initialState SimState, transition Transition, opts SimulateOptions) *SimulationRun {
	if opts.NumTrajectories <= 0 {
		opts.NumTrajectories = 10
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 20
	}
	if transition == nil {
		transition = func(SimState) []SimState { return nil }
	}

	trajectories := make([]Trajectory, 0, opts.NumTrajectories)
	rewardSum := 0.0
	for i := 0; i < opts.NumTrajectories; i++ {
		traj := Trajectory{States: []SimState{initialState}, TotalReward: initialState.Reward}
		state := initialState
		for step := 1; step < opts.MaxSteps; step++ {
			candidates := transition(state)
			if len(candidates) == 0 {
				break
			}
			state = candidates[e.randomIntn(len(candidates))]
			traj.States = append(traj.States, state)
			traj.TotalReward += state.Reward
		}
		rewardSum += traj.TotalReward
		trajectories = append(trajectories, traj)
	}
	sort.SliceStable(trajectories, func(i, j int) bool {
		return trajectories[i].TotalReward > trajectories[j].TotalReward
	})

	run := &SimulationRun{
		ID:             core.NewID(),
		Trajectories:   trajectories,
		BestTrajectory: trajectories[0],
		ExpectedReward: rewardSum / float64(len(trajectories)),
		CreatedAt:      time.Now().UTC(),
	}

	e.mu.Lock()
	e.sims[run.ID] = run
	e.totalSims++
	snapshot := *run
	e.mu.Unlock()

	e.emitter.Emit(core.EventSimulated, snapshot)
	e.logger.Debug("simulation completed", "trajectories", len(trajectories))
	return &snapshot
}

// GetSimulation returns a copy of a stored run, or nil when unknown.
func (e *Engine) GetSimulation(simulationID string) *SimulationRun {
	e.mu.Lock()
	defer e.mu.Unlock()
	run, ok := e.sims[simulationID]
	if !ok {
		return nil
	}
	snapshot := *run
	snapshot.Trajectories = append([]Trajectory{}, run.Trajectories...)
	return &snapshot
}
