package config

import (
	"errors"
	"runtime"
)

// Default engine parameters.
const (
	DefaultParallelThreshold = 256
	DefaultPartitionSize     = 1024
	DefaultSpinAttempts      = 16
	DefaultSessionCacheSize  = 128
)

// EngineConfiguration contains parameters of the trie building engine.
type EngineConfiguration struct {
	// Workers is the number of goroutines used by a single build, 0 means
	// the number of CPUs.
	Workers int `yaml:"Workers"`
	// ParallelThreshold is the minimal partition size built in a separate
	// goroutine by the two-phase builder.
	ParallelThreshold int `yaml:"ParallelThreshold"`
	// PartitionSize is the number of keys an OLC worker takes at once.
	PartitionSize int `yaml:"PartitionSize"`
	// SpinAttempts is the number of OLC retries before exponential backoff.
	SpinAttempts int `yaml:"SpinAttempts"`
	// SessionCacheSize is the number of committed roots kept for Resume.
	SessionCacheSize int `yaml:"SessionCacheSize"`
	// CopyValues makes the engine copy input keys and values instead of
	// referencing caller's buffers.
	CopyValues bool `yaml:"CopyValues"`
	// KeccakWarmup is the number of hashers created in advance.
	KeccakWarmup int `yaml:"KeccakWarmup"`
}

// DefaultEngineConfiguration returns engine configuration with default values.
func DefaultEngineConfiguration() EngineConfiguration {
	return EngineConfiguration{
		ParallelThreshold: DefaultParallelThreshold,
		PartitionSize:     DefaultPartitionSize,
		SpinAttempts:      DefaultSpinAttempts,
		SessionCacheSize:  DefaultSessionCacheSize,
	}
}

// GetWorkers returns the effective number of workers.
func (e EngineConfiguration) GetWorkers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.NumCPU()
}

// Validate checks engine configuration.
func (e EngineConfiguration) Validate() error {
	switch {
	case e.Workers < 0:
		return errors.New("negative Workers")
	case e.ParallelThreshold < 0:
		return errors.New("negative ParallelThreshold")
	case e.PartitionSize < 0:
		return errors.New("negative PartitionSize")
	case e.SessionCacheSize < 0:
		return errors.New("negative SessionCacheSize")
	case e.KeccakWarmup < 0:
		return errors.New("negative KeccakWarmup")
	}
	return nil
}
