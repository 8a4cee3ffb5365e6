package audio

import "go.uber.org/zap"

// SystemBuilderOption is a function that configures a sound System during construction.
type SystemBuilderOption func(*System)

// WithLogger sets the logger used for sound diagnostics.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - SystemBuilderOption: a function that applies the logger option
func WithLogger(log *zap.Logger) SystemBuilderOption {
	return func(s *System) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMasterVolume scales the gain of every source. Zero silences the system.
func WithMasterVolume(volume float64) SystemBuilderOption {
	return func(s *System) {
		s.master = max(volume, 0)
	}
}
