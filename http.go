package pinpoint

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raphi011/pinpoint/internal/model"
	"github.com/raphi011/pinpoint/internal/unit"
)

func (s *Server) runHTTP() error {
	router := httprouter.New()

	router.GET("/classes", s.GetClasses)
	router.POST("/classes/:class/methods/:method/runs", s.CreateRun)
	router.GET("/classes/:class/methods/:method/runs", s.GetRuns)
	router.GET("/runs/:run-id", s.GetRun)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	listener, err := net.Listen("tcp", "localhost:"+strconv.Itoa(s.config.Port))
	if err != nil {
		return err
	}

	s.listener = listener
	s.httpServer = &http.Server{Handler: router}

	s.readyOnce.Do(func() { close(s.ready) })

	s.log.Info("starting http server", "port", s.ServerPort())

	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) GetClasses(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	s.writeResponse(w, r, s.Classes())
}

// CreateRun executes a test method and responds with the stored run once the
// execution finished.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	e, err := s.execute(r.Context(), description(p), "http")
	if err != nil {
		s.httpError(w, err)
		return
	}

	s.writeResponse(w, r, e.record)
}

func (s *Server) GetRuns(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	d := description(p)

	if _, _, err := s.lookup(d); err != nil {
		s.httpError(w, err)
		return
	}

	records, err := s.storage.LoadResults(r.Context(), d)
	if err != nil {
		s.httpError(w, err)
		return
	}

	s.writeResponse(w, r, records)
}

func (s *Server) GetRun(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	rec, err := s.storage.LoadRun(r.Context(), p.ByName("run-id"))
	if err != nil {
		s.httpError(w, err)
		return
	}

	s.writeResponse(w, r, rec)
}

func description(p httprouter.Params) model.Description {
	return model.Description{Class: p.ByName("class"), Method: p.ByName("method")}
}

func (s *Server) writeResponse(w http.ResponseWriter, r *http.Request, body any) {
	content, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err = w.Write(content); err != nil {
		s.log.Warn("error writing body", "error", err, "path", r.URL.Path)
	}
}

func (s *Server) httpError(w http.ResponseWriter, err error) {
	var notFound model.NotFoundError

	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrShuttingDown):
		status = http.StatusServiceUnavailable
	case errors.Is(err, unit.ErrConfiguration):
		status = http.StatusUnprocessableEntity
	}

	content, _ := json.Marshal(model.ErrorHTTP{Error: err.Error()})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(content)
}
