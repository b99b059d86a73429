// Package monitor exposes a running machine over HTTP for debugging
// and demos: register inspection, single-stepping, device access and
// accelerator inference.
package monitor

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"rvsoc/pkg/npu"
	"rvsoc/pkg/soc"
)

// Server serialises all machine access behind one mutex, so it can sit
// next to a console or desktop frontend stepping the same machine.
type Server struct {
	mu      sync.Mutex
	machine *soc.Machine
	driver  *npu.Driver

	running bool
	stop    chan struct{}

	router *mux.Router
}

// NewServer wraps a machine. The machine must only be stepped through
// the server's Lock/Unlock once the server is serving.
func NewServer(m *soc.Machine) *Server {
	s := &Server{
		machine: m,
		driver:  npu.New(m.Bus, soc.NPUBase),
	}
	r := mux.NewRouter()
	r.HandleFunc("/api/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/api/regs", s.handleRegs).Methods(http.MethodGet)
	r.HandleFunc("/api/step", s.handleStep).Methods(http.MethodPost)
	r.HandleFunc("/api/run", s.handleRun).Methods(http.MethodPost)
	r.HandleFunc("/api/pause", s.handlePause).Methods(http.MethodPost)
	r.HandleFunc("/api/gpio", s.handleGPIOGet).Methods(http.MethodGet)
	r.HandleFunc("/api/gpio", s.handleGPIOSet).Methods(http.MethodPost)
	r.HandleFunc("/api/uart", s.handleUART).Methods(http.MethodPost)
	r.HandleFunc("/api/framebuffer.png", s.handleFramebuffer).Methods(http.MethodGet)
	r.HandleFunc("/api/npu/infer", s.handleInfer).Methods(http.MethodPost)
	s.router = r
	return s
}

// Lock takes the machine for external stepping (frontends call this
// around their own Step loops).
func (s *Server) Lock()   { s.mu.Lock() }
func (s *Server) Unlock() { s.mu.Unlock() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("monitor listening on %s", ln.Addr())
	return http.Serve(ln, s)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("monitor: encode response: %v", err)
	}
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	http.Error(w, fmt.Sprintf(format, args...), code)
}

type stateResponse struct {
	PC      uint32 `json:"pc"`
	State   string `json:"state"`
	Cycles  uint64 `json:"cycles"`
	Halted  bool   `json:"halted"`
	Faulted bool   `json:"faulted"`
	Running bool   `json:"running"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := stateResponse{
		PC:      s.machine.Core.PC,
		State:   s.machine.Core.State.String(),
		Cycles:  s.machine.Cycles,
		Halted:  s.machine.Halted(),
		Faulted: s.machine.Core.Faulted,
		Running: s.running,
	}
	s.mu.Unlock()
	writeJSON(w, resp)
}

func (s *Server) handleRegs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	regs := s.machine.Core.Regs
	s.mu.Unlock()
	writeJSON(w, map[string]any{"regs": regs[:]})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		N uint64 `json:"n"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req) // empty body means one step
	}
	if req.N == 0 {
		req.N = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		httpError(w, http.StatusConflict, "machine is free-running; pause first")
		return
	}
	var stepped uint64
	var stepErr error
	for ; stepped < req.N && !s.machine.Halted(); stepped++ {
		if err := s.machine.Step(); err != nil {
			stepErr = err
			break
		}
	}
	resp := map[string]any{"stepped": stepped, "cycles": s.machine.Cycles}
	if stepErr != nil {
		resp["fault"] = stepErr.Error()
	}
	writeJSON(w, resp)
}

func (s *Server) handleRun(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		writeJSON(w, map[string]any{"running": true})
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	go s.runLoop(s.stop)
	writeJSON(w, map[string]any{"running": true})
}

func (s *Server) runLoop(stop chan struct{}) {
	const batch = 4096
	for {
		s.mu.Lock()
		// A pause may have landed while we waited for the lock; check
		// under the mutex so no batch runs after handlePause returns.
		select {
		case <-stop:
			s.mu.Unlock()
			return
		default:
		}
		for i := 0; i < batch; i++ {
			if s.machine.Halted() || s.machine.Step() != nil {
				s.running = false
				s.mu.Unlock()
				return
			}
		}
		s.mu.Unlock()
	}
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	if s.running {
		close(s.stop)
		s.running = false
	}
	cycles := s.machine.Cycles
	s.mu.Unlock()
	writeJSON(w, map[string]any{"running": false, "cycles": cycles})
}

func (s *Server) handleGPIOGet(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	leds, sw := s.machine.GPIO.LEDs, s.machine.GPIO.Switches()
	s.mu.Unlock()
	writeJSON(w, map[string]any{"leds": leds, "switches": sw})
}

func (s *Server) handleGPIOSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Switches uint32 `json:"switches"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "bad body: %v", err)
		return
	}
	s.mu.Lock()
	s.machine.GPIO.SetSwitches(req.Switches)
	s.mu.Unlock()
	writeJSON(w, map[string]any{"switches": req.Switches})
}

func (s *Server) handleUART(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "bad body: %v", err)
		return
	}
	s.mu.Lock()
	for _, b := range []byte(req.Data) {
		s.machine.UART.PushByte(b)
	}
	s.mu.Unlock()
	writeJSON(w, map[string]any{"queued": len(req.Data)})
}

func (s *Server) handleFramebuffer(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "image/png")
	if err := s.machine.VGA.Screenshot(w); err != nil {
		log.Printf("monitor: screenshot: %v", err)
	}
}

func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input [4]int8 `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "bad body: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		httpError(w, http.StatusConflict, "machine is free-running; pause first")
		return
	}
	out, err := s.driver.Execute(npu.Vec4(req.Input))
	if err != nil {
		httpError(w, http.StatusServiceUnavailable, "inference: %v", err)
		return
	}
	writeJSON(w, map[string]any{"output": [4]int8(out)})
}
