// Package server exposes a keyring over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/AvaProtocol/aa-keyring/core/keyring"
	"github.com/AvaProtocol/aa-keyring/pkg/logger"
	"github.com/AvaProtocol/aa-keyring/version"
)

type HttpJsonResp[T any] struct {
	Data T `json:"data"`
}

type HttpErrorResp struct {
	Error HttpError `json:"error"`
}

type HttpError struct {
	Kind    keyring.ErrorKind `json:"kind,omitempty"`
	Message string            `json:"message"`
}

type Config struct {
	BindAddress string
	// JwtSecret enables API key checks when set.
	JwtSecret []byte
	Logger    sdklogging.Logger
	Events    *EventLog
}

type Server struct {
	keyring *keyring.Keyring
	logger  sdklogging.Logger
	events  *EventLog
	addr    string
	secret  []byte

	echo  *echo.Echo
	ready atomic.Bool
}

const shutdownTimeout = 10 * time.Second

func New(k *keyring.Keyring, c Config) *Server {
	s := &Server{
		keyring: k,
		logger:  logger.EnsureLogger(c.Logger),
		events:  c.Events,
		addr:    c.BindAddress,
		secret:  c.JwtSecret,
	}
	s.echo = s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/up", func(c echo.Context) error {
		if s.ready.Load() {
			return c.String(http.StatusOK, "up")
		}
		return c.String(http.StatusServiceUnavailable, "pending...")
	})

	e.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, &HttpJsonResp[map[string]string]{
			Data: map[string]string{"version": version.Get(), "revision": version.Commit()},
		})
	})

	read := e.Group("", s.requireKey(false))
	read.GET("/accounts", s.listAccounts)
	read.GET("/accounts/:id", s.getAccount)
	read.POST("/accounts/:id/chains", s.filterSupportedChains)
	read.GET("/events", s.listEvents)

	write := e.Group("", s.requireKey(true))
	write.POST("/accounts", s.createAccount)
	write.PUT("/accounts/:id", s.updateAccount)
	write.DELETE("/accounts/:id", s.deleteAccount)
	write.POST("/submit", s.submit)

	return e
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", s.addr)
		errCh <- s.echo.Start(s.addr)
	}()
	s.ready.Store(true)

	select {
	case err := <-errCh:
		s.ready.Store(false)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("HTTP server shutting down")
	return s.echo.Shutdown(shutdownCtx)
}

// SetReady flips the /up probe. Start sets it on its own.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) listAccounts(c echo.Context) error {
	return c.JSON(http.StatusOK, &HttpJsonResp[[]keyring.Account]{Data: s.keyring.ListAccounts()})
}

func (s *Server) getAccount(c echo.Context) error {
	account, err := s.keyring.GetAccount(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &HttpJsonResp[keyring.Account]{Data: account})
}

func (s *Server) createAccount(c echo.Context) error {
	options := map[string]interface{}{}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&options); err != nil {
			return err
		}
	}

	account, err := s.keyring.CreateAccount(c.Request().Context(), options)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, &HttpJsonResp[keyring.Account]{Data: account})
}

func (s *Server) updateAccount(c echo.Context) error {
	var account keyring.Account
	if err := c.Bind(&account); err != nil {
		return err
	}
	if account.ID == "" {
		account.ID = c.Param("id")
	}
	if account.ID != c.Param("id") {
		return echo.NewHTTPError(http.StatusBadRequest, "account id does not match the path")
	}

	if err := s.keyring.UpdateAccount(c.Request().Context(), account); err != nil {
		return err
	}
	updated, err := s.keyring.GetAccount(account.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &HttpJsonResp[keyring.Account]{Data: updated})
}

func (s *Server) deleteAccount(c echo.Context) error {
	if err := s.keyring.DeleteAccount(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type filterChainsBody struct {
	Chains []string `json:"chains"`
}

func (s *Server) filterSupportedChains(c echo.Context) error {
	var body filterChainsBody
	if err := c.Bind(&body); err != nil {
		return err
	}
	chains := s.keyring.FilterSupportedChains(c.Param("id"), body.Chains)
	if chains == nil {
		chains = []string{}
	}
	return c.JSON(http.StatusOK, &HttpJsonResp[[]string]{Data: chains})
}

func (s *Server) submit(c echo.Context) error {
	var req keyring.Request
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Request.Method == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "request.method is required")
	}

	resp, err := s.keyring.Submit(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &HttpJsonResp[*keyring.Response]{Data: resp})
}

func (s *Server) listEvents(c echo.Context) error {
	events := []Event{}
	if s.events != nil {
		events = s.events.Recent()
	}
	return c.JSON(http.StatusOK, &HttpJsonResp[[]Event]{Data: events})
}
