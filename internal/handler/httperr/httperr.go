package httperr

import (
	"net/http"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/gin-gonic/gin"
)

const serverError = "Server error"

type Response struct {
	Status int    `json:"-"`
	Error  string `json:"error"`
}

// Status maps an error kind onto the HTTP status the client sees.
func Status(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindProvider, errs.KindPersistence:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-safe text for err. Unkinded errors never leak their
// text.
func Message(err error) string {
	if _, ok := errs.As(err); ok {
		return errs.Message(err)
	}
	return serverError
}

// preserves original error for the logging middleware
func AbortWithError(c *gin.Context, status int, err error, msg string) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status, Error: msg}
	_ = c.Error(&gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

// Abort derives status and message from err's kind.
func Abort(c *gin.Context, err error) {
	AbortWithError(c, Status(err), err, Message(err))
}
