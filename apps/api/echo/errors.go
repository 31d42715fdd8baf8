package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/assignment"
	"github.com/smartsubmit/smartsubmit/core/user"
)

// newAppHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain
// errors to the {success:false, message} envelope. Internal details are
// logged server-side only.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				// absent token: not authenticated
				code = http.StatusUnauthorized
				message = user.ErrTokenMissing.Error()
				break
			}
			if origErr.Code == http.StatusUnauthorized && origErr.Internal != nil {
				// the JWT middleware wraps signature/expiry failures
				code = http.StatusForbidden
				message = user.ErrTokenInvalid.Error()
				break
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
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
		default:
			switch origErr {
			case user.ErrInvalidCredentials:
				code = http.StatusUnauthorized
				message = origErr.Error()
			case user.ErrRoleNotHeld, assignment.ErrNotTeacher:
				code = http.StatusForbidden
				message = origErr.Error()
			case user.ErrEmailExists:
				code = http.StatusBadRequest
				message = origErr.Error()
			case user.ErrNotFound:
				code = http.StatusNotFound
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				message = http.StatusText(http.StatusInternalServerError)
				logger.Error(http.StatusText(code), err)
			}
		}

		if !ctx.Response().Committed {
			var werr error
			if ctx.Request().Method == http.MethodHead {
				werr = ctx.NoContent(code)
			} else {
				werr = ctx.JSON(code, errorResponse{Success: false, Message: message})
			}
			if werr != nil {
				ctx.Echo().Logger.Error(werr)
			}
		}
	}
}

type errorResponse struct {
	Success bool        `json:"success"`
	Message interface{} `json:"message"`
}
