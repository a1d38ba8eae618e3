package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/raphi011/pinpoint"
	"github.com/stretchr/testify/assert"
)

// counter is shared state of the Checkout class, it is reset by the static
// initializer whenever the class is loaded into an isolation context.
var counter int

func main() {
	c := pinpoint.Config{
		Port:     1337,
		Instance: "example",
		LogLevel: "debug",
	}

	p, err := pinpoint.New(
		pinpoint.WithConfig(c),
		pinpoint.WithClasses(
			pinpoint.TestClass{
				Name: "Checkout",
				Init: func() {
					counter = 0
				},
				Setup: func() error {
					counter++
					return nil
				},
				Methods: map[string]pinpoint.TestFunc{
					"flaky":   Flaky,
					"sleep":   Sleep,
					"success": Success,
					"panic":   Panic,
					"skip":    Skip,
					"fatal":   Fatal,
					"testify": Testify,
				},
			},
		),
		pinpoint.WithScheduledRun(pinpoint.ScheduledRun{
			Test:     pinpoint.Description{Class: "Checkout", Method: "success"},
			Schedule: "@every 5s",
		}),
	)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(-1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		if err := p.Run(); err != nil {
			slog.Error(err.Error())
			os.Exit(-1)
		}
	}()

	<-ctx.Done()

	if err := p.Shutdown(context.Background()); err != nil {
		slog.Error(err.Error())
		os.Exit(-1)
	}
}

func Flaky(t pinpoint.TB) {
	if rand.Intn(3) == 0 {
		t.Fatal("flaky test failed")
	}

	t.Log("flaky test succeeded")
}

func Sleep(t pinpoint.TB) {
	time.Sleep(1 * time.Second)
}

func Success(t pinpoint.TB) {
	t.Logf("checkout number %d", counter)
}

func Fatal(t pinpoint.TB) {
	t.Fatal("fatal error")
}

func Panic(t pinpoint.TB) {
	panic("panic!")
}

func Skip(t pinpoint.TB) {
	t.Skip("skipping test")
}

func Testify(t pinpoint.TB) {
	assert.Equal(t, 1, 2)
}
