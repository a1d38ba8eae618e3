package pinpoint

import "log/slog"

// WithScheduledRun schedules a test method to run at certain intervals.
// Ignored in CLI mode.
func WithScheduledRun(sr ScheduledRun) option {
	return func(s *Server) {
		s.schedules = append(s.schedules, sr)
	}
}

// WithLibrary loads the test classes of a plugin library into their own
// isolation context.
func WithLibrary(path string) option {
	return func(s *Server) {
		s.config.Libraries = append(s.config.Libraries, path)
	}
}

func WithClasses(classes ...TestClass) option {
	return func(s *Server) {
		s.userClasses = append(s.userClasses, classes...)
	}
}

func WithHook(h Hook) option {
	return func(s *Server) {
		s.userHooks = append(s.userHooks, h)
	}
}

// WithConfig replaces the configuration. Libraries added by WithLibrary before are
// kept.
func WithConfig(c Config) option {
	return func(s *Server) {
		libraries := s.config.Libraries
		s.config = c
		s.config.Libraries = append(libraries, c.Libraries...)
	}
}

func WithLogger(log *slog.Logger) option {
	return func(s *Server) {
		s.log = log
	}
}
