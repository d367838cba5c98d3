package httperr

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.Validation("Missing imageDataUrl"), http.StatusBadRequest},
		{errs.Provider("insufficient credits", nil), http.StatusBadGateway},
		{errs.Persistence("Upload failed", nil), http.StatusBadGateway},
		{errs.Configuration("Missing S3_BUCKET"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
		{errs.Wrap(errs.Validation("bad"), "choose"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}

func TestMessageHidesUnkinded(t *testing.T) {
	assert.Equal(t, "Missing S3_BUCKET", Message(errs.Configuration("Missing S3_BUCKET")))
	assert.Equal(t, "Server error", Message(errors.New("dial tcp 10.0.0.1:443: i/o timeout")))
}

func TestAbort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Abort(c, errs.Validation("Missing imageDataUrl"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing imageDataUrl"}`, rec.Body.String())
	assert.True(t, c.IsAborted())
	assert.Len(t, c.Errors, 1)
}
