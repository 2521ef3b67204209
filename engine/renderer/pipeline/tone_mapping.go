package pipeline

import "fmt"

// ToneMapping selects the operator the output pass applies to the averaged radiance.
type ToneMapping uint32

const (
	ToneMappingLinear ToneMapping = iota
	ToneMappingReinhard
	ToneMappingCineon
	ToneMappingACESFilmic
)

func (t ToneMapping) String() string {
	switch t {
	case ToneMappingLinear:
		return "linear"
	case ToneMappingReinhard:
		return "reinhard"
	case ToneMappingCineon:
		return "cineon"
	case ToneMappingACESFilmic:
		return "aces-filmic"
	default:
		return fmt.Sprintf("ToneMapping(%d)", uint32(t))
	}
}

// Valid reports whether t names a known operator.
func (t ToneMapping) Valid() bool {
	return t <= ToneMappingACESFilmic
}

// ToneMappingParams configures the output pass.
type ToneMappingParams struct {
	Mode ToneMapping
	// Exposure scales radiance before the operator.
	Exposure float32
	// WhitePoint is the radiance mapped to full white by the Linear and Reinhard operators.
	WhitePoint float32
}

// DefaultToneMappingParams returns linear mapping with unit exposure and white point.
func DefaultToneMappingParams() ToneMappingParams {
	return ToneMappingParams{
		Mode:       ToneMappingLinear,
		Exposure:   1,
		WhitePoint: 1,
	}
}

// sanitized replaces unusable values with the defaults.
func (p ToneMappingParams) sanitized() ToneMappingParams {
	if !p.Mode.Valid() {
		p.Mode = ToneMappingLinear
	}
	if !(p.Exposure > 0) {
		p.Exposure = 1
	}
	if !(p.WhitePoint > 0) {
		p.WhitePoint = 1
	}
	return p
}
