package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentkernel/kernel"
	"github.com/hupe1980/agentkernel/memory"
	"github.com/hupe1980/agentkernel/reasoning"
)

const sampleYAML = `
kernel:
  max_concurrency: 4
  call_timeout: 5s
  max_call_history: 25
  detached_handlers: true
memory:
  stm_capacity: 20
  ltm_capacity: 200
  promotion_q_threshold: 0.75
  q_learning_rate: 0.2
  enable_semantic_index: false
reasoning:
  rand_seed: 42
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 4, f.Kernel.MaxConcurrency)
	assert.Equal(t, 5*time.Second, f.Kernel.CallTimeout)
	assert.Equal(t, 25, f.Kernel.MaxCallHistory)
	assert.True(t, f.Kernel.DetachedHandlers)

	assert.Equal(t, 20, f.Memory.STMCapacity)
	assert.Equal(t, 200, f.Memory.LTMCapacity)
	assert.InDelta(t, 0.75, f.Memory.PromotionQThreshold, 1e-9)
	assert.InDelta(t, 0.2, f.Memory.QLearningRate, 1e-9)
	require.NotNil(t, f.Memory.EnableSemanticIndex)
	assert.False(t, *f.Memory.EnableSemanticIndex)

	assert.Equal(t, int64(42), f.Reasoning.RandSeed)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("kernel: [not a mapping"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Kernel.MaxConcurrency)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOptions_ApplyNonZeroValues(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	ko := kernel.Options{MaxConcurrency: 10, CallTimeout: 30 * time.Second, MaxCallHistory: 100}
	f.KernelOptions()(&ko)
	assert.Equal(t, 4, ko.MaxConcurrency)
	assert.Equal(t, 5*time.Second, ko.CallTimeout)
	assert.True(t, ko.DetachedHandlers)

	mo := memory.Options{STMCapacity: 50, LTMCapacity: 500, EnableSemanticIndex: true}
	f.MemoryOptions()(&mo)
	assert.Equal(t, 20, mo.STMCapacity)
	assert.False(t, mo.EnableSemanticIndex)

	ro := reasoning.Options{}
	f.ReasoningOptions()(&ro)
	assert.Equal(t, int64(42), ro.RandSeed)
}

func TestOptions_EmptyFileLeavesDefaults(t *testing.T) {
	f, err := Parse([]byte("{}"))
	require.NoError(t, err)

	mo := memory.Options{STMCapacity: 50, EnableSemanticIndex: true}
	f.MemoryOptions()(&mo)
	assert.Equal(t, 50, mo.STMCapacity)
	assert.True(t, mo.EnableSemanticIndex)
}
