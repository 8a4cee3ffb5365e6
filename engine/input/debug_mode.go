package input

// DebugMode selects the postprocess visualization. The value is written to the postprocess uniform as is.
type DebugMode uint32

const (
	DebugNone DebugMode = iota
	DebugBaseColor
	DebugNormals
	DebugMetalRough
	DebugEmission
	DebugDepth
	DebugSSAO
	DebugBloom
	DebugShadow
	DebugModeCount
)

var debugModeNames = [...]string{
	DebugNone:       "none",
	DebugBaseColor:  "base color",
	DebugNormals:    "normals",
	DebugMetalRough: "metal/rough",
	DebugEmission:   "emission",
	DebugDepth:      "depth",
	DebugSSAO:       "ssao",
	DebugBloom:      "bloom",
	DebugShadow:     "shadow slot 0",
}

func (m DebugMode) String() string {
	if m < DebugModeCount {
		return debugModeNames[m]
	}
	return "unknown"
}
