package unit

import (
	"errors"

	"github.com/raphi011/pinpoint/internal/model"
)

// StaticInitializationUnsupported is the diagnostic of the fault returned when the
// test class was loaded outside the isolation context of the execution.
const StaticInitializationUnsupported = "execution of statically-initialized mutation not supported in this configuration."

var (
	// ErrConfiguration matches every *ConfigurationFault.
	ErrConfiguration = errors.New("configuration fault")

	ErrIsolationViolation = errors.New("test class was loaded by a different isolation context")

	// ErrNoTerminalEvent is the cause of the error outcome reported when the engine
	// returned without ever finishing the bound test.
	ErrNoTerminalEvent = errors.New("engine returned without a terminal event")
)

// ConfigurationFault is a fatal infrastructure error of a single execution. It is
// never a test outcome and is never retried.
type ConfigurationFault struct {
	Test    model.Description
	Message string
	Err     error
}

func (f *ConfigurationFault) Error() string {
	if f.Message == "" {
		if f.Err == nil {
			return ErrConfiguration.Error()
		}
		return f.Err.Error()
	}

	if f.Err == nil || f.Err == ErrIsolationViolation {
		return f.Message
	}

	return f.Message + ": " + f.Err.Error()
}

func (f *ConfigurationFault) Unwrap() error {
	return f.Err
}

func (f *ConfigurationFault) Is(target error) bool {
	return target == ErrConfiguration
}
