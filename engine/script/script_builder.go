package script

import "go.uber.org/zap"

// SystemBuilderOption is a functional option for configuring a script System.
type SystemBuilderOption func(*System)

// WithLogger sets the logger scripts log through and errors are reported to.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - SystemBuilderOption: option function to apply
func WithLogger(log *zap.Logger) SystemBuilderOption {
	return func(s *System) {
		if log != nil {
			s.log = log
		}
	}
}
