// Package config loads AgentKernel component configuration from YAML files.
// The loaded values map onto the functional options of the kernel registry,
// context memory unit and reasoning engine; zero values defer to each
// component's defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentkernel/kernel"
	"github.com/hupe1980/agentkernel/memory"
	"github.com/hupe1980/agentkernel/reasoning"
)

// KernelConfig mirrors the registry's recognized options.
type KernelConfig struct {
	MaxConcurrency   int           `yaml:"max_concurrency"`
	CallTimeout      time.Duration `yaml:"call_timeout"`
	MaxCallHistory   int           `yaml:"max_call_history"`
	DetachedHandlers bool          `yaml:"detached_handlers"`
}

// MemoryConfig mirrors the context memory unit's recognized options.
type MemoryConfig struct {
	STMCapacity         int     `yaml:"stm_capacity"`
	LTMCapacity         int     `yaml:"ltm_capacity"`
	PromotionQThreshold float64 `yaml:"promotion_q_threshold"`
	QLearningRate       float64 `yaml:"q_learning_rate"`
	EnableSemanticIndex *bool   `yaml:"enable_semantic_index"`
}

// ReasoningConfig mirrors the reasoning engine's recognized options.
type ReasoningConfig struct {
	RandSeed int64 `yaml:"rand_seed"`
}

// File is the root YAML document.
type File struct {
	Kernel    KernelConfig    `yaml:"kernel"`
	Memory    MemoryConfig    `yaml:"memory"`
	Reasoning ReasoningConfig `yaml:"reasoning"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML configuration document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &f, nil
}

// KernelOptions returns a functional option applying the non-zero kernel
// settings.
func (f *File) KernelOptions() func(o *kernel.Options) {
	return func(o *kernel.Options) {
		if f.Kernel.MaxConcurrency > 0 {
			o.MaxConcurrency = f.Kernel.MaxConcurrency
		}
		if f.Kernel.CallTimeout > 0 {
			o.CallTimeout = f.Kernel.CallTimeout
		}
		if f.Kernel.MaxCallHistory > 0 {
			o.MaxCallHistory = f.Kernel.MaxCallHistory
		}
		o.DetachedHandlers = f.Kernel.DetachedHandlers
	}
}

// MemoryOptions returns a functional option applying the non-zero memory
// settings.
func (f *File) MemoryOptions() func(o *memory.Options) {
	return func(o *memory.Options) {
		if f.Memory.STMCapacity > 0 {
			o.STMCapacity = f.Memory.STMCapacity
		}
		if f.Memory.LTMCapacity > 0 {
			o.LTMCapacity = f.Memory.LTMCapacity
		}
		if f.Memory.PromotionQThreshold > 0 {
			o.PromotionQThreshold = f.Memory.PromotionQThreshold
		}
		if f.Memory.QLearningRate > 0 {
			o.QLearningRate = f.Memory.QLearningRate
		}
		if f.Memory.EnableSemanticIndex != nil {
			o.EnableSemanticIndex = *f.Memory.EnableSemanticIndex
		}
	}
}

// ReasoningOptions returns a functional option applying the non-zero
// reasoning settings.
func (f *File) ReasoningOptions() func(o *reasoning.Options) {
	return func(o *reasoning.Options) {
		if f.Reasoning.RandSeed != 0 {
			o.RandSeed = f.Reasoning.RandSeed
		}
	}
}
