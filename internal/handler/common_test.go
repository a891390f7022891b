package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/arvelin/class-booking/internal/repository"
	"github.com/arvelin/class-booking/internal/service"
)

func newContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestGetUserID(t *testing.T) {
	cases := []struct {
		name string
		set  interface{}
		want uint64
		ok   bool
	}{
		{"uint64", uint64(7), 7, true},
		{"float64 from jwt claims", float64(42), 42, true},
		{"numeric string", "19", 19, true},
		{"garbage string", "abc", 0, false},
		{"missing", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newContext(t)
			if tc.set != nil {
				c.Set("user_id", tc.set)
			}
			got, err := getUserID(c)
			if tc.ok && (err != nil || got != tc.want) {
				t.Fatalf("got (%d, %v), want (%d, nil)", got, err, tc.want)
			}
			if !tc.ok && err == nil {
				t.Fatalf("got (%d, nil), want error", got)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	c, _ := newContext(t)
	c.Set("role", "ADMIN")
	if !isAdmin(c) {
		t.Fatal("ADMIN role not recognized")
	}
	c.Set("role", "CLIENT")
	if isAdmin(c) {
		t.Fatal("CLIENT role treated as admin")
	}
}

func TestJSONErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{repository.ErrClassNotFound, http.StatusNotFound},
		{repository.ErrRegistrationNotFound, http.StatusNotFound},
		{repository.ErrForbidden, http.StatusForbidden},
		{repository.ErrClassFull, http.StatusConflict},
		{repository.ErrConflict, http.StatusConflict},
		{repository.ErrAlreadyWaitlisted, http.StatusConflict},
		{repository.ErrClassNotBookable, http.StatusConflict},
		{repository.ErrReservationExpired, http.StatusGone},
		{service.ErrInvalidPaymentMethod, http.StatusBadRequest},
		{service.ErrInvalidAmount, http.StatusBadRequest},
	}
	for _, tc := range cases {
		c, rec := newContext(t)
		if err := jsonError(c, tc.err); err != nil {
			t.Fatalf("jsonError(%v) returned %v", tc.err, err)
		}
		if rec.Code != tc.want {
			t.Fatalf("jsonError(%v) = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}
