package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mark3labs/apitool/internal/apiitem"
	"github.com/mark3labs/apitool/internal/logging"
)

// HeaderMockSource reports which Source produced a response.
const HeaderMockSource = "X-Mock-Source"

// Options configure the mock server.
type Options struct {
	Host string
	Port int
	// PrefixURL is prepended to every item url.
	PrefixURL string
}

// Envelope is the generic response shape; failures are rendered with a nil Result.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  any    `json:"result"`
}

// Server serves one route per api item.
type Server struct {
	echo     *echo.Echo
	log      logging.Logger
	opts     Options
	resolver *Resolver

	mu        sync.Mutex
	listener  net.Listener
	closeOnce sync.Once
	closeErr  error
}

// New builds the router for items. Routes are registered in item order.
func New(items []apiitem.ApiItem, resolver *Resolver, log logging.Logger, opts Options) (*Server, error) {
	if len(items) == 0 {
		return nil, apiitem.ErrNoApiItems
	}
	if log == nil {
		log = logging.Nop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 10 * time.Second

	s := &Server{echo: e, log: log, opts: opts, resolver: resolver}
	e.HTTPErrorHandler = s.errorHandler
	s.setupMiddlewares()

	for _, item := range items {
		path := routePath(opts.PrefixURL, item.URL)
		e.Add(item.Method.HTTPMethod(), path, s.handle(item))
		log.Info().
			Str("method", item.Method.HTTPMethod()).
			Str("path", path).
			Str("model", item.ResponseModel).
			Msg("mock route")
	}
	return s, nil
}

func (s *Server) setupMiddlewares() {
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRoutePath: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			event := s.log.Info()
			switch {
			case v.Status >= http.StatusInternalServerError:
				event = s.log.Error()
			case v.Status >= http.StatusBadRequest:
				event = s.log.Warn()
			}
			if v.Error != nil {
				event = event.Err(v.Error)
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("route", v.RoutePath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	s.echo.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.log.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("stack", string(stack)).
				Msg("panic recovered")
			return err
		},
	}))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestID,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID, HeaderMockSource},
		MaxAge:        86400,
	}))
}

func (s *Server) handle(item apiitem.ApiItem) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, src, err := s.resolver.Resolve(item)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
		}
		c.Response().Header().Set(HeaderMockSource, src.String())
		switch b := body.(type) {
		case nil:
			return c.NoContent(http.StatusNoContent)
		case json.RawMessage:
			return c.JSONBlob(http.StatusOK, b)
		default:
			return c.JSON(http.StatusOK, b)
		}
	}
}

// errorHandler renders failures as an Envelope carrying the HTTP status as code.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		default:
			msg = http.StatusText(status)
		}
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, Envelope{Code: status, Message: msg})
	}
	if werr != nil {
		s.log.Error().Err(werr).Msg("write error response")
	}
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.echo }

// Listen binds the configured address. Bind errors are returned here, before Serve.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("serve: already listening")
	}
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = l
	s.echo.Listener = l
	s.log.Info().Str("addr", l.Addr().String()).Msg("mock server listening")
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve blocks until Close. It listens first if Listen was not called.
func (s *Server) Serve() error {
	if s.Addr() == "" {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	// Shutdown acts on echo.Server, so serve on that instance.
	err := s.echo.StartServer(s.echo.Server)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops the server and releases the listener. Only the first call does work;
// later calls return the first result.
func (s *Server) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		err := s.echo.Shutdown(ctx)
		s.mu.Lock()
		l := s.listener
		s.mu.Unlock()
		if l != nil {
			if cerr := l.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
				err = cerr
			}
		}
		s.closeErr = err
		s.log.Info().Msg("mock server closed")
	})
	return s.closeErr
}

func routePath(prefix, url string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if url != "" && !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	path := prefix + url
	if path == "" {
		return "/"
	}
	return path
}
