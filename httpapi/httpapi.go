// Package httpapi exposes a small HTTP management surface over a set of
// named ipmigo sessions: status, command execution, and a chunked SOL
// stream, following the mux.Router/subrouter layout of the console-server
// management API this package is modeled on.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ipmitool/go-ipmi-lanplus"
	"github.com/ipmitool/go-ipmi-lanplus/audit"
)

// Server manages a named set of already-open ipmigo clients and serves
// HTTP requests against them.
type Server struct {
	port   int
	log    logrus.FieldLogger
	router *mux.Router

	mu      sync.RWMutex
	clients map[string]*ipmigo.Client

	audit *audit.Sink

	httpServer *http.Server
}

// SetAuditSink wires an audit trail for command execution; without one, the
// server just doesn't record anything (nil audit is the zero-value default).
func (s *Server) SetAuditSink(a *audit.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = a
}

func (s *Server) recordExecute(host string, cmd ipmigo.Command, err error) {
	s.mu.RLock()
	a := s.audit
	s.mu.RUnlock()
	if a == nil {
		return
	}
	if rerr := a.RecordExecute(host, cmd, err); rerr != nil {
		s.log.WithError(rerr).Warnf("audit record failed for %s", host)
	}
}

// New builds a Server listening on port. Clients are registered after
// construction with Register, since opening a session can fail and the
// caller may want to keep serving status for the hosts that did open.
func New(port int, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		port:    port,
		log:     log,
		router:  mux.NewRouter(),
		clients: make(map[string]*ipmigo.Client),
	}
	s.setupRoutes()
	return s
}

// Register makes c reachable as name under /api/hosts/{name}/....
func (s *Server) Register(name string, c *ipmigo.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[name] = c
}

func (s *Server) client(name string) (*ipmigo.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[name]
	return c, ok
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/hosts", s.handleListHosts).Methods("GET")
	api.HandleFunc("/hosts/{name}/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/hosts/{name}/execute", s.handleExecute).Methods("POST")
	api.HandleFunc("/hosts/{name}/sol", s.handleSOLStream).Methods("GET")
	api.HandleFunc("/hosts/{name}/chassis", s.handleChassis).Methods("GET")
	api.HandleFunc("/hosts/{name}/sel", s.handleSEL).Methods("GET")
	api.HandleFunc("/hosts/{name}/sdr", s.handleSDR).Methods("GET")
	api.HandleFunc("/hosts/{name}/sensors/{number}", s.handleSensorReading).Methods("GET")
}

func (s *Server) handleListHosts(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	names := make([]string, 0, len(s.clients))
	for n := range s.clients {
		names = append(names, n)
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c, ok := s.client(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	err := c.Ping()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    name,
		"reachable": err == nil,
	})
}

// rawCommandRequest is the execute endpoint's request body: a raw NetFn/Code
// command, since the HTTP surface has no way to name the many typed
// Command structs the core defines.
type rawCommandRequest struct {
	NetFn uint8  `json:"netfn"`
	Code  uint8  `json:"code"`
	Data  []byte `json:"data"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c, ok := s.client(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var req rawCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmd := ipmigo.NewRawCommand("raw", req.Code, ipmigo.NewNetFnRsLUN(ipmigo.NetFn(req.NetFn), 0), req.Data)
	err := c.Execute(cmd)
	s.recordExecute(name, cmd, err)
	if err != nil {
		s.log.WithError(err).Warnf("execute failed on %s", name)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": fmt.Sprintf("%x", cmd.Output())})
}

// handleChassis reports chassis power state via Get Chassis Status.
func (s *Server) handleChassis(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c, ok := s.client(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	cmd := &ipmigo.GetChassisStatusCommand{}
	err := c.Execute(cmd)
	s.recordExecute(name, cmd, err)
	if err != nil {
		s.log.WithError(err).Warnf("chassis status failed on %s", name)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

// handleSEL lists System Event Log entries, paged by the offset/num query
// parameters (default: the first 20 entries).
func (s *Server) handleSEL(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c, ok := s.client(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	offset := queryInt(r, "offset", 0)
	num := queryInt(r, "num", 20)

	records, total, err := ipmigo.SELGetEntries(c, offset, num)
	if err != nil {
		s.log.WithError(err).Warnf("SEL read failed on %s", name)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "records": records})
}

// handleSDR dumps the full Sensor Data Record repository.
func (s *Server) handleSDR(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c, ok := s.client(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	records, err := ipmigo.SDRGetAllRecordsRepo(c)
	if err != nil {
		s.log.WithError(err).Warnf("SDR read failed on %s", name)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleSensorReading reads one sensor by its IPMI sensor number, e.g.
// GET /api/hosts/{name}/sensors/12.
func (s *Server) handleSensorReading(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c, ok := s.client(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	n, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil || n < 0 || n > 0xff {
		http.Error(w, "invalid sensor number", http.StatusBadRequest)
		return
	}

	cmd := &ipmigo.GetSensorReadingCommand{SensorNumber: uint8(n)}
	execErr := c.Execute(cmd)
	s.recordExecute(name, cmd, execErr)
	if execErr != nil {
		s.log.WithError(execErr).Warnf("sensor reading failed on %s", name)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": execErr.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reading":   cmd.SensorReading,
		"valid":     cmd.IsValid(),
		"threshold": string(cmd.ThresholdStatus()),
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// handleSOLStream streams SOL console output as newline-delimited chunked
// JSON until the client disconnects or the session closes.
func (s *Server) handleSOLStream(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c, ok := s.client(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, err := c.RecvSOL()
		if err != nil {
			enc.Encode(map[string]string{"error": err.Error()})
			flusher.Flush()
			return
		}
		if len(data) == 0 {
			continue
		}
		enc.Encode(map[string]string{"data": string(data)})
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Run serves the API until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down httpapi server")
		s.httpServer.Shutdown(context.Background())
	}()

	s.log.Infof("httpapi listening on port %d", s.port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
