package service

import "time"

// Option configures the analysis components
type Option func(*settings)

type settings struct {
	now               func() time.Time
	historyLimit      int
	defaultWindowDays int
}

func defaultSettings() settings {
	return settings{
		now:               time.Now,
		historyLimit:      DefaultPatternHistoryLimit,
		defaultWindowDays: DefaultWindowDays,
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithClock overrides the wall clock used for windows and timestamps
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPatternHistoryLimit bounds the patterns retained per subject
func WithPatternHistoryLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithDefaultWindowDays sets the window Analyze uses when none is given
func WithDefaultWindowDays(days int) Option {
	return func(s *settings) {
		if days > 0 {
			s.defaultWindowDays = days
		}
	}
}
