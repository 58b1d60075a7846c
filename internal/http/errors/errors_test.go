package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

func TestFromDomain(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: bad email", repository.ErrInvalidInput), 400, "BAD_REQUEST"},
		{repository.ErrUnsupportedInputShape, 400, "UNSUPPORTED_CONTENT"},
		{repository.ErrInvalidCredentials, 401, "INVALID_CREDENTIALS"},
		{fmt.Errorf("get: %w", repository.ErrNotFound), 404, "NOT_FOUND"},
		{repository.ErrConflict, 409, "CONFLICT"},
		{repository.ErrCertificateRevoked, 409, "CERTIFICATE_REVOKED"},
		{repository.ErrAlreadyRevoked, 409, "ALREADY_REVOKED"},
		{repository.ErrAmbiguousMatch, 500, "INTEGRITY_ERROR"},
	}
	for _, tc := range cases {
		got := FromDomain(tc.err)
		if got == nil {
			t.Fatalf("FromDomain(%v) = nil", tc.err)
		}
		if got.HTTPStatus != tc.status || got.Code != tc.code {
			t.Fatalf("FromDomain(%v) = %d %s, want %d %s", tc.err, got.HTTPStatus, got.Code, tc.status, tc.code)
		}
		if !stderrors.Is(got, tc.err) {
			t.Fatalf("cause lost for %v", tc.err)
		}
	}
	if FromDomain(stderrors.New("boom")) != nil {
		t.Fatal("unknown error must not map")
	}
}

func TestFromError_InternalHidesCause(t *testing.T) {
	got := FromError(stderrors.New("db password leaked"))
	if got.HTTPStatus != http.StatusInternalServerError || got.Detail != "" {
		t.Fatalf("got %+v", got)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.Header().Set("X-Request-ID", "rid-1")
	WriteError(rr, ErrForbidden.WithDetail("operator role required"))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rr.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != "FORBIDDEN" || body.RequestID != "rid-1" || body.Detail != "operator role required" {
		t.Fatalf("body=%+v", body)
	}
}
