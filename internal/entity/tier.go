package entity

// Tier is the qualitative processing strength selected from an intensity.
type Tier string

const (
	TierLight  Tier = "light"
	TierMedium Tier = "medium"
	TierStrong Tier = "strong"
)

const (
	MinIntensity     = 1
	MaxIntensity     = 10
	DefaultIntensity = 5
)

// ModelConfig describes the enhancement model used for a tier.
type ModelConfig struct {
	Name        string
	Description string
}

var modelConfigs = map[Tier]ModelConfig{
	TierLight:  {Name: "FRCRN_SE_16K", Description: "Fast, lightweight processing"},
	TierMedium: {Name: "MossFormer2_SE_48K", Description: "Balanced quality and speed"},
	TierStrong: {Name: "MossFormerGAN_SE_16K", Description: "Best quality, more aggressive"},
}

// ClampIntensity forces v into [MinIntensity, MaxIntensity].
func ClampIntensity(v int) int {
	if v < MinIntensity {
		return MinIntensity
	}
	if v > MaxIntensity {
		return MaxIntensity
	}
	return v
}

// TierForIntensity maps 1-3 to light, 4-7 to medium and 8-10 to strong.
// Values outside the scale are clamped first.
func TierForIntensity(v int) Tier {
	switch v = ClampIntensity(v); {
	case v <= 3:
		return TierLight
	case v <= 7:
		return TierMedium
	default:
		return TierStrong
	}
}

// Model returns the model configuration for t, falling back to medium.
func (t Tier) Model() ModelConfig {
	if c, ok := modelConfigs[t]; ok {
		return c
	}
	return modelConfigs[TierMedium]
}

// Priority is the queue lane for a tier: fast jobs go first.
// 0=low, 1=normal, 2=high.
func (t Tier) Priority() int {
	switch t {
	case TierLight:
		return 2
	case TierStrong:
		return 0
	default:
		return 1
	}
}
