package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contentforge/studio/internal/credits"
	"github.com/gin-gonic/gin"
)

func TestStatusOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{credits.ValidationError{Field: "amount", Message: "bad"}, http.StatusBadRequest, CodeValidation},
		{credits.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{credits.ErrAccountNotFound, http.StatusNotFound, CodeNotFound},
		{credits.ErrInsufficientBalance, http.StatusConflict, CodeInsufficientBalance},
		{fmt.Errorf("%w: deadlock", credits.ErrConflict), http.StatusConflict, CodeConflict},
		{fmt.Errorf("%w: timeout", credits.ErrTransientStore), http.StatusServiceUnavailable, CodeUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		status, code := StatusOf(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v: expected %d/%s, got %d/%s", tc.err, tc.status, tc.code, status, code)
		}
	}
}

func TestWriteErrorHidesStoreDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	WriteError(c, fmt.Errorf("%w: dial tcp 10.0.0.5:5432: connection refused", credits.ErrTransientStore))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", recorder.Code)
	}
	if strings.Contains(recorder.Body.String(), "10.0.0.5") {
		t.Fatalf("expected driver text to be hidden, got %s", recorder.Body.String())
	}
}

func TestPageFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=500&offset=10", nil)
	page, err := PageFromQuery(c)
	if err != nil || page.Limit != 100 || page.Offset != 10 {
		t.Fatalf("unexpected page %+v (%v)", page, err)
	}

	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=abc", nil)
	if _, err := PageFromQuery(c); !errors.Is(err, credits.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
