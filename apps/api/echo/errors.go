package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
)

var (
	errActivityNotFound = echo.NewHTTPError(http.StatusNotFound, activity.ErrNotFound.Error())
	errAlreadySignedUp  = echo.NewHTTPError(http.StatusBadRequest, activity.ErrAlreadySignedUp.Error())
	errTooManySignups   = echo.NewHTTPError(http.StatusTooManyRequests, "too many signup attempts, try again later")
)

// errorResponse is the body of every error response.
type errorResponse struct {
	Detail interface{} `json:"detail"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		// already handled (the metrics middleware reports errors early)
		if ctx.Response().Committed {
			return
		}

		var code int
		var detail interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			detail = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			detail = core.TranslateErrors(origErr, translator)
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			detail = msg
			if ctx.Echo().Debug {
				detail = err.Error()
			}

			logger.Error(msg, errors.Wrap(err, msg), map[string]interface{}{
				"method": ctx.Request().Method,
				"uri":    ctx.Request().RequestURI,
			})

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, errorResponse{Detail: detail})
		}
		if err != nil {
			logger.Error("writing error response", err)
		}
	}
}
