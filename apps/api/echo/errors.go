package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/ozgesheedu/ozgeshe/core"
)

const (
	codeValidationFailed = "VALIDATION_FAILED"
	codeServerError      = "SERVER_ERROR"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusCode turns an HTTP status into a machine code, e.g. 404 -> NOT_FOUND.
func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var status int
		var resp ErrorResponse

		switch origErr := errors.Cause(err).(type) {
		case *core.Error:
			status = origErr.Status
			resp = ErrorResponse{Error: origErr.Error(), Code: origErr.Code}
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				status = http.StatusUnauthorized
				resp = ErrorResponse{Error: fmt.Sprint(origErr.Message), Code: statusCode(status)}
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			status = origErr.Code
			resp = ErrorResponse{Error: fmt.Sprint(origErr.Message), Code: statusCode(status)}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			status = http.StatusBadRequest
			resp = ErrorResponse{Error: "validation failed", Code: codeValidationFailed, Fields: fldErrs}
		case *core.ValidationError:
			resp = ErrorResponse{Error: origErr.Error(), Code: codeValidationFailed}
			if origErr.Fields != nil {
				resp.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Fields[fErr.Field] = fErr.Error
				}
			}
			status = http.StatusBadRequest
		default: // any other error is a server error
			status = http.StatusInternalServerError
			msg := http.StatusText(status)
			resp = ErrorResponse{Error: msg, Code: codeServerError}

			args := []interface{}{errors.Wrap(err, msg)}
			if actor, aErr := getContextActor(ctx); aErr == nil {
				args = append(args, actor)
			}
			logger.Error(msg, args...)

			if ctx.Echo().Debug {
				resp.Error = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(status)
			} else {
				err = ctx.JSON(status, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
