package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Spidey0819/Container-1/calc"
	"github.com/Spidey0819/Container-1/storage"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultAddress = "0.0.0.0:6000"
	DefaultRoot    = "/dhruv_PV_dir"
)

// Calculator forwards a calculation request for a stored file. Implementations
// report failures wrapping calc.ErrCommunication or calc.ErrInvalidResponse so
// that they can be told apart in responses.
type Calculator interface {
	Calculate(ctx context.Context, file string, product json.RawMessage) (json.RawMessage, error)
}

type Option func(*options)

type options struct {
	address         string
	store           storage.Store
	calculator      Calculator
	shutdownTimeout time.Duration
}

func WithAddress(value string) Option {
	return func(o *options) {
		o.address = value
	}
}

func WithStore(value storage.Store) Option {
	return func(o *options) {
		o.store = value
	}
}

func WithCalculator(value Calculator) Option {
	return func(o *options) {
		o.calculator = value
	}
}

// WithShutdownTimeout bounds how long Shutdown waits for in-flight requests.
func WithShutdownTimeout(value time.Duration) Option {
	return func(o *options) {
		o.shutdownTimeout = value
	}
}

type Server struct {
	opts    options
	handler http.Handler

	mu       sync.Mutex
	ln       net.Listener
	srv      *http.Server
	drained  chan struct{}
	shutdown sync.Once
}

// New returns a server storing files on disk under DefaultRoot and forwarding
// calculations to calc.DefaultURL, unless told otherwise.
func New(opts ...Option) *Server {
	s := &Server{}
	s.opts.address = DefaultAddress
	s.opts.shutdownTimeout = 5 * time.Second
	for _, o := range opts {
		o(&s.opts)
	}
	if s.opts.store == nil {
		s.opts.store = storage.NewDiskStore(DefaultRoot)
	}
	if s.opts.calculator == nil {
		s.opts.calculator = calc.New()
	}
	mux := http.NewServeMux()
	mux.Handle("/store-file", s.route("store", postOnly(s.storeFile)))
	mux.Handle("/calculate", s.route("calculate", postOnly(s.calculate)))
	mux.Handle("/", s.route("unknown", notFound))
	s.handler = mux
	return s
}

// Handler returns the HTTP handler serving all routes, for use without
// Listen and Serve.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Listen() (addr string, err error) {
	ln, err := net.Listen("tcp", s.opts.address)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.drained = make(chan struct{})
	s.mu.Unlock()
	addr = ln.Addr().String()
	return
}

// Serve handles requests on the listener obtained via Listen. The function
// will return after Shutdown is called, once in-flight requests are done or
// the shutdown timeout has expired.
func (s *Server) Serve() error {
	s.mu.Lock()
	srv, ln, drained := s.srv, s.ln, s.drained
	s.mu.Unlock()
	if srv == nil {
		return errors.New("serve called before listen")
	}
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		// srv.Serve returns as soon as Shutdown starts, not when it is done.
		<-drained
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits, up to the shutdown
// timeout, for in-flight requests to complete.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	srv, ln, drained := s.srv, s.ln, s.drained
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	defer s.shutdown.Do(func() {
		close(drained)
	})
	// Serve may not have taken ownership of the listener yet.
	defer func() {
		_ = ln.Close()
	}()
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithField("err", err).Warn("Could not drain connections, closing")
		return srv.Close()
	}
	return nil
}
