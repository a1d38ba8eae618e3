// Package pinpoint runs single test methods of test classes on demand, on a schedule
// or from the command line, and records their outcomes.
//
// Test classes are either passed in directly with WithClasses or loaded from plugin
// libraries with WithLibrary. Every source of classes is its own isolation context: a
// class is always executed in the context that defined it.
package pinpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/raphi011/pinpoint/internal/config"
	"github.com/raphi011/pinpoint/internal/hook"
	"github.com/raphi011/pinpoint/internal/isolation"
	"github.com/raphi011/pinpoint/internal/model"
	"github.com/raphi011/pinpoint/internal/storage"
	"github.com/robfig/cron/v3"
)

// Reexport to allow library users to reference these types

type TestFunc = model.TestFunc
type TB = model.TB
type TestClass = model.TestClass
type Description = model.Description
type Outcome = model.Outcome
type Config = config.Config
type Hook = hook.Hook

// ErrShuttingDown is returned for executions requested after Shutdown was called.
var ErrShuttingDown = errors.New("server is shutting down")

type Server struct {
	config config.Config
	log    *slog.Logger

	// classes passed in with WithClasses
	userClasses []model.TestClass
	userHooks   []hook.Hook

	// loaders holds one isolation context per class source
	loaders []*isolation.Loader
	// classLoaders maps class names to the loader that defines them
	classLoaders map[string]*isolation.Loader

	schedules []ScheduledRun
	cron      *cron.Cron

	hooks   *hook.Manager
	storage *storage.Storage

	httpServer *http.Server
	listener   net.Listener
	ready      chan struct{}
	readyOnce  sync.Once

	// lock guards shuttingDown and additions to runningUnits
	lock         sync.Mutex
	runningUnits sync.WaitGroup
	shuttingDown bool
}

type option func(s *Server)

// New configures a new pinpoint instance. It loads all classes, opens the database
// and initializes the hooks, the HTTP server is started by Run.
func New(opts ...option) (*Server, error) {
	s := &Server{
		config:       config.Default(),
		log:          slog.Default(),
		classLoaders: map[string]*isolation.Loader{},
		ready:        make(chan struct{}),
	}

	for _, o := range opts {
		o(s)
	}

	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	for _, sc := range s.config.Schedules {
		s.schedules = append(s.schedules, ScheduledRun{
			Test:     model.Description{Class: sc.Class, Method: sc.Method},
			Schedule: sc.Schedule,
		})
	}

	if err := s.loadClasses(); err != nil {
		return nil, err
	}

	if err := s.initHooks(); err != nil {
		return nil, err
	}

	var err error
	if s.storage, err = storage.New(s.config.DatabaseFile, s.log); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) loadClasses() error {
	if len(s.userClasses) > 0 {
		l, err := isolation.NewLoader("classes", nil, s.userClasses...)
		if err != nil {
			return fmt.Errorf("defining classes: %w", err)
		}

		s.loaders = append(s.loaders, l)
	}

	for _, path := range s.config.Libraries {
		l, err := isolation.LoadLibrary(path, nil)
		if err != nil {
			return err
		}

		s.loaders = append(s.loaders, l)
	}

	for _, l := range s.loaders {
		for _, name := range l.Classes() {
			if _, ok := s.classLoaders[name]; ok {
				return model.DuplicateError{Kind: "class", Name: name}
			}

			s.classLoaders[name] = l
		}

		s.log.Debug("loaded classes", "loader", l.Name(), "classes", len(l.Classes()))
	}

	return nil
}

func (s *Server) initHooks() error {
	hooks := append([]hook.Hook{}, s.userHooks...)

	if s.config.Elastic.URL != "" {
		es, err := hook.NewElasticSearchHook(s.config.Elastic.URL, s.config.Elastic.Index, s.config.Instance, s.log)
		if err != nil {
			return err
		}

		hooks = append(hooks, es)
	}

	s.hooks = hook.NewManager(s.log, hooks...)

	return s.hooks.Init()
}

// Run starts the schedules and serves the HTTP API until Shutdown is called.
func (s *Server) Run() error {
	if err := s.startSchedules(); err != nil {
		return err
	}

	return s.runHTTP()
}

// WaitForStartup blocks until the HTTP server accepts connections.
func (s *Server) WaitForStartup() {
	<-s.ready
}

// ServerPort returns the port the HTTP server listens on. It is only valid after
// WaitForStartup returned.
func (s *Server) ServerPort() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Shutdown stops accepting new executions and waits for running ones, async hooks
// and the HTTP server to finish or ctx to be done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.lock.Lock()
	s.shuttingDown = true
	s.lock.Unlock()

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	var errs []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping http server: %w", err))
		}
	}

	done := make(chan struct{})
	go func() {
		s.runningUnits.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for running executions: %w", ctx.Err()))
	}

	if err := s.hooks.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("waiting for hooks: %w", err))
	}

	if err := s.storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing storage: %w", err))
	}

	return errors.Join(errs...)
}

// Classes lists every loaded test class.
func (s *Server) Classes() []model.ClassHTTP {
	classes := []model.ClassHTTP{}

	for _, l := range s.loaders {
		for _, name := range l.Classes() {
			c, err := l.Load(name)
			if err != nil {
				s.log.Warn("unable to load class", "class", name, "error", err)
				continue
			}

			classes = append(classes, model.ClassHTTP{
				Name:    name,
				Loader:  l.Name(),
				Methods: c.Methods(),
			})
		}
	}

	return classes
}

// startUnit registers a running execution unless the server is shutting down.
func (s *Server) startUnit() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.shuttingDown {
		return ErrShuttingDown
	}

	s.runningUnits.Add(1)

	return nil
}
