package chain

import (
	"math"
	"time"
)

// TTLStrategy determines the TTL written to each cache layer during warm-up.
type TTLStrategy interface {
	// GetTTL returns the TTL for the cache layer at layerIndex out of layerCount.
	GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration
}

// UniformTTLStrategy uses the same TTL for all layers.
type UniformTTLStrategy struct{}

// GetTTL returns baseTTL.
func (UniformTTLStrategy) GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration {
	return baseTTL
}

// DecayingTTLStrategy shortens the TTL of faster layers. The deepest cache
// layer keeps baseTTL and each layer above it gets DecayFactor times the TTL
// of the layer below, so per-process copies expire before shared ones.
type DecayingTTLStrategy struct {
	DecayFactor float64
}

// GetTTL returns baseTTL * DecayFactor^(layerCount-1-layerIndex).
// Factors outside (0, 1) disable decay.
func (s DecayingTTLStrategy) GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration {
	if s.DecayFactor <= 0 || s.DecayFactor >= 1 || layerIndex >= layerCount-1 {
		return baseTTL
	}

	exponent := float64(layerCount - 1 - layerIndex)
	return time.Duration(float64(baseTTL) * math.Pow(s.DecayFactor, exponent))
}

// CustomTTLStrategy uses explicit TTL values per layer.
type CustomTTLStrategy struct {
	TTLs []time.Duration
}

// GetTTL returns the configured TTL for the layer, or baseTTL if none is set.
func (s CustomTTLStrategy) GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration {
	if layerIndex < len(s.TTLs) && s.TTLs[layerIndex] > 0 {
		return s.TTLs[layerIndex]
	}
	return baseTTL
}
