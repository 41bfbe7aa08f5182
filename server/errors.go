package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AvaProtocol/aa-keyring/core/auth"
	"github.com/AvaProtocol/aa-keyring/core/keyring"
)

const internalErrorMessage = "internal error"

// StatusFor maps an error kind onto the HTTP status the host answers with.
func StatusFor(kind keyring.ErrorKind) int {
	switch kind {
	case keyring.KindNotFound:
		return http.StatusNotFound
	case keyring.KindInvalidConfig, keyring.KindInvalidArgument, keyring.KindScopeMismatch:
		return http.StatusBadRequest
	case keyring.KindDuplicateAddress:
		return http.StatusConflict
	case keyring.KindUnsupportedOperation, keyring.KindUnsupportedMethod,
		keyring.KindUnsupportedChain, keyring.KindAccountChainUnsupported:
		return http.StatusUnprocessableEntity
	case keyring.KindMissingConfig:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := HttpError{Kind: keyring.KindInternal, Message: internalErrorMessage}

	var (
		kerr *keyring.Error
		herr *echo.HTTPError
	)
	switch {
	case errors.As(err, &kerr):
		status = StatusFor(kerr.Kind)
		body.Kind = kerr.Kind
		switch kerr.Kind {
		case keyring.KindInternal:
			s.logger.Error("keyring request failed", "path", c.Path(), "error", err)
			if kerr.Message != "" {
				body.Message = kerr.Message
			}
		default:
			body.Message = kerr.Error()
		}
	case errors.As(err, &herr):
		status = herr.Code
		body.Kind = keyring.KindInvalidArgument
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			body.Kind = ""
		}
		if msg, ok := herr.Message.(string); ok {
			body.Message = msg
		} else {
			body.Message = http.StatusText(status)
		}
	default:
		s.logger.Error("unhandled HTTP error", "path", c.Path(), "error", err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, &HttpErrorResp{Error: body})
	}
	if writeErr != nil {
		s.logger.Error("cannot write error response", "error", writeErr)
	}
}

// requireKey checks the bearer API key when a secret is configured. write
// demands the admin role.
func (s *Server) requireKey(write bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(s.secret) == 0 {
				return next(c)
			}

			token, err := auth.ParseBearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			claims, err := auth.VerifyAPIKey(s.secret, token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, auth.ErrorUnAuthorized.Error())
			}
			if write && !claims.CanWrite() {
				return echo.NewHTTPError(http.StatusForbidden, "api key is read only")
			}
			c.Set("apiKeySubject", claims.Subject)
			return next(c)
		}
	}
}
