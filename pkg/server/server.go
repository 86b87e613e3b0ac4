package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	libovsdbclient "github.com/ovn-kubernetes/libovsdb/client"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/mechdriver"
	"github.com/netgroup-polito/ovn-networking/pkg/metrics"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

// The Server is the HTTP/JSON API the orchestrator invokes the driver
// through. Each request carries the resources it works on together with
// the orchestrator state the driver may need to look up, so the Server
// keeps no state of its own besides the database clients. The driver
// callbacks made while serving a request (provisioning blocks, segment
// host mappings, bindings) are returned in the response.

// RequestIDHeader is the header carrying the request id. A request without
// one gets a new id.
const RequestIDHeader = "X-Request-ID"

// Server serves the driver API
type Server struct {
	http.Server
	driver   *mechdriver.Driver
	nbClient libovsdbclient.Client
	sbClient libovsdbclient.Client
}

// call is a request being served
type call struct {
	ctx    context.Context
	driver *mechdriver.Driver
	vars   map[string]string
	req    *Request
	resp   *Response
}

type handlerFunc func(c *call) error

// NewServer returns a Server running driver operations, with driver
// callbacks served from the request
func NewServer(driver *mechdriver.Driver, nbClient, sbClient libovsdbclient.Client) *Server {
	router := mux.NewRouter()
	s := &Server{
		Server: http.Server{
			Handler: router,
		},
		driver:   driver,
		nbClient: nbClient,
		sbClient: sbClient,
	}

	router.NotFoundHandler = http.HandlerFunc(http.NotFound)
	router.Use(requestMiddleware)
	router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	v1 := router.PathPrefix("/v1").Subrouter()
	routes := []struct {
		method  string
		path    string
		handler handlerFunc
	}{
		{"POST", "/networks/precommit", createNetworkPrecommit},
		{"PUT", "/networks/precommit", updateNetworkPrecommit},
		{"POST", "/networks", createNetwork},
		{"PUT", "/networks", updateNetwork},
		{"DELETE", "/networks/{id}", deleteNetwork},

		{"POST", "/subnets", createSubnet},
		{"PUT", "/subnets", updateSubnet},
		{"DELETE", "/subnets/{id}", deleteSubnet},
		{"GET", "/subnets/{id}/dhcp-options", getSubnetDHCPOptions},

		{"POST", "/ports/validate", validatePort},
		{"POST", "/ports/precommit", createPortPrecommit},
		{"PUT", "/ports/precommit", updatePortPrecommit},
		{"POST", "/ports/bind", bindPort},
		{"POST", "/ports/dhcp-options", getPortDHCPOptions},
		{"POST", "/ports", createPort},
		{"PUT", "/ports", updatePort},
		{"DELETE", "/ports/{id}", deletePort},
		{"PUT", "/ports/{id}/status", setPortStatus},

		{"POST", "/security-groups", createSecurityGroup},
		{"PUT", "/security-groups", updateSecurityGroup},
		{"DELETE", "/security-groups/{id}", deleteSecurityGroup},
		{"POST", "/security-group-rules", createSecurityGroupRule},
		{"DELETE", "/security-group-rules/{id}", deleteSecurityGroupRule},

		{"POST", "/routers", createRouter},
		{"PUT", "/routers", updateRouter},
		{"DELETE", "/routers/{id}", deleteRouter},
		{"POST", "/routers/{id}/interfaces", addRouterInterface},
		{"DELETE", "/routers/{id}/interfaces/{port_id}", removeRouterInterface},

		{"PUT", "/hosts/{host}/segments", updateSegmentHostMapping},
		{"POST", "/hosts/sync", syncSegmentHostMappings},
		{"POST", "/segments", addSegmentHostMapping},
	}
	for _, route := range routes {
		v1.Handle(route.path, s.handle(route.handler)).Methods(route.method)
	}
	return s
}

// Start serves the API on bindAddress until stopChan is closed
func (s *Server) Start(bindAddress string, stopChan <-chan struct{}, wg *sync.WaitGroup) error {
	l, err := net.Listen("tcp", bindAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", bindAddress, err)
	}
	klog.Infof("Starting API server at address %q", bindAddress)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.Errorf("API server at address %q failed: %v", bindAddress, err)
		}
	}()
	go func() {
		defer wg.Done()
		<-stopChan
		klog.Infof("Stopping API server at address %q", bindAddress)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			klog.Errorf("Error stopping API server at address %q: %v", bindAddress, err)
		}
	}()
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !s.nbClient.Connected() || !s.sbClient.Connected() {
		http.Error(w, "not connected to the OVN databases", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("ok\n")); err != nil {
		klog.Warningf("Error writing HTTP response: %v", err)
	}
}

// handle decodes the request, runs fn against a driver calling back into
// the request, and writes the response
func (s *Server) handle(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := &Response{RequestID: w.Header().Get(RequestIDHeader)}
		logger := klog.NewKlogr().WithName("api").WithValues("requestID", resp.RequestID)
		req := &Request{}
		if r.Body != nil && r.Method != http.MethodGet {
			b, err := io.ReadAll(r.Body)
			if err == nil && len(b) > 0 {
				err = json.Unmarshal(b, req)
			}
			if err != nil {
				writeError(logger, w, resp, fmt.Errorf("%w: malformed request body: %v", mechdriver.ErrInvalidInput, err))
				return
			}
		}

		ctx, cancel := context.WithTimeout(klog.NewContext(r.Context(), logger), types.OVSDBTimeout)
		defer cancel()
		plugin := newRequestPlugin(req)
		c := &call{
			ctx:    ctx,
			driver: s.driver.WithPlugin(plugin),
			vars:   mux.Vars(r),
			req:    req,
			resp:   resp,
		}
		err := fn(c)
		plugin.record(resp)
		if err != nil {
			writeError(logger, w, resp, err)
			return
		}
		writeResponse(w, http.StatusOK, resp)
	})
}

// StatusForError returns the HTTP status reporting err
func StatusForError(err error) int {
	switch {
	case errors.Is(err, mechdriver.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ops.ErrNotFound), errors.Is(err, neutron.ErrPortNotFound):
		return http.StatusNotFound
	case errors.Is(err, ops.ErrAlreadyExists), errors.Is(err, ops.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ops.ErrDatabaseUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(logger logr.Logger, w http.ResponseWriter, resp *Response, err error) {
	code := StatusForError(err)
	if code == http.StatusInternalServerError {
		logger.Error(err, "Request failed")
	} else {
		logger.V(4).Info("Request rejected", "status", code, "reason", err.Error())
	}
	resp.Error = err.Error()
	writeResponse(w, code, resp)
}

func writeResponse(w http.ResponseWriter, code int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		klog.Warningf("Error writing HTTP response: %v", err)
	}
}

// statusRecorder records the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// requestMiddleware tags the request with an id, logs it and counts it
func requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.MetricAPIRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.code)).Inc()
		klog.V(4).Infof("Request %s: %s %s -> %d (%v)", id, r.Method, r.URL.Path, rec.code, time.Since(start))
	})
}
