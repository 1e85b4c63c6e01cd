package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/class"
	"github.com/campusrecords/campus/core/transcript"
	"github.com/campusrecords/campus/core/user"
)

// error kinds
const (
	kindValidation = "validation"
	kindAuth       = "auth"
	kindNotFound   = "not_found"
	kindExport     = "export"
	kindInternal   = "internal"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
)

func kindOf(code int) string {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return kindAuth
	case code == http.StatusNotFound:
		return kindNotFound
	case code < http.StatusInternalServerError:
		return kindValidation
	default:
		return kindInternal
	}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var kind string
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				kind = kindAuth
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
			kind = kindOf(code)
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
			kind = kindValidation
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
			kind = kindValidation
		case *core.NotFoundError:
			code = http.StatusNotFound
			message = origErr.Error()
			kind = kindNotFound
		case *transcript.ExportError:
			code = http.StatusInternalServerError
			message = origErr.Error()
			kind = kindExport
			logger.Error(origErr.Error(), err, claimsUser(ctx))
		default:
			switch origErr {
			case user.ErrInvalidCredentials:
				code, message, kind = http.StatusUnauthorized, origErr.Error(), kindAuth
			case user.ErrAccountDeactivated, class.ErrNotClassTeacher:
				code, message, kind = http.StatusForbidden, origErr.Error(), kindAuth
			default: // any other error is a server error
				code = http.StatusInternalServerError
				kind = kindInternal
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), claimsUser(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && kind == kindInternal {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, echo.Map{"error": message, "kind": kind})
			}
			if err != nil {
				logger.Error(err.Error(), err)
			}
		}
	}
}

// claimsUser identifies the requester in error reports.
func claimsUser(ctx echo.Context) user.User {
	var usr user.User
	if claims, err := getContextClaims(ctx); err == nil {
		usr.ID = claims.Subject
		usr.Name = claims.Name
		usr.Email = claims.Email
	}
	return usr
}
