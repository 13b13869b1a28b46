package store

import (
	"time"

	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/types"
)

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the section id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLogger sets the logger used for import substitutions.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.WithComponent("store")
		}
	}
}

// WithMetadata sets the metadata block attached to every export.
func WithMetadata(md types.Metadata) Option {
	return func(s *Store) {
		s.metadata = md
	}
}
