package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphi011/pinpoint/internal/isolation"
)

// Config configures a single engine instance.
type Config struct {
	// Loader resolves the classes named in the suites. Required.
	Loader *isolation.Loader
	// DefaultListeners registers the engine's logging and metrics listeners in
	// addition to Listeners.
	DefaultListeners bool
	Listeners        []Listener
	// Context is handed to tests through T.Context. Defaults to context.Background().
	Context context.Context
	Logger  *slog.Logger
}

// Validate reports an error wrapping ErrConfiguration if the config is incomplete.
func (c Config) Validate() error {
	if c.Loader == nil {
		return fmt.Errorf("%w: missing loader", ErrConfiguration)
	}

	for i, l := range c.Listeners {
		if l == nil {
			return fmt.Errorf("%w: listener %d is nil", ErrConfiguration, i)
		}
	}

	return nil
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	if c.Context == nil {
		c.Context = context.Background()
	}

	return c
}
