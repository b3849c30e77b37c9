package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vouchd/vouchd/internal/core"
)

const identityResponse = `<GetCallerIdentityResponse xmlns="https://sts.amazonaws.com/doc/2011-06-15/">
  <GetCallerIdentityResult>
    <Arn>arn:aws:iam::123456789012:user/alice</Arn>
    <UserId>AIDAEXAMPLE</UserId>
    <Account>123456789012</Account>
  </GetCallerIdentityResult>
</GetCallerIdentityResponse>`

func newTestVerifier(ts *httptest.Server) *Verifier {
	return New(WithEndpoint(func(string) string { return ts.URL }))
}

func TestResolveRelaysHeadersVerbatim(t *testing.T) {
	var seen http.Header
	var seenHost string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		seenHost = r.Host
		_, _ = w.Write([]byte(identityResponse))
	}))
	defer ts.Close()

	headers := map[string]string{
		"Authorization": "AWS4-HMAC-SHA256 Credential=AKIA/...",
		"X-Amz-Date":    "20240101T000000Z",
		"Host":          "sts.eu-central-1.amazonaws.com",
	}

	arn, err := newTestVerifier(ts).Resolve(context.Background(), "eu-central-1", headers)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := "arn:aws:iam::123456789012:user/alice"; arn != want {
		t.Errorf("Resolve() = %q, want %q", arn, want)
	}

	if got := seen.Get("Authorization"); got != headers["Authorization"] {
		t.Errorf("Authorization forwarded as %q, want %q", got, headers["Authorization"])
	}
	if got := seen.Get("X-Amz-Date"); got != headers["X-Amz-Date"] {
		t.Errorf("X-Amz-Date forwarded as %q, want %q", got, headers["X-Amz-Date"])
	}
	if seenHost != headers["Host"] {
		t.Errorf("Host forwarded as %q, want %q", seenHost, headers["Host"])
	}
}

func TestResolveClassifiesUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "signature rejected", status: http.StatusForbidden, wantErr: core.ErrAuthentication},
		{name: "bad request", status: http.StatusBadRequest, wantErr: core.ErrAuthentication},
		{name: "upstream outage", status: http.StatusServiceUnavailable, wantErr: core.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("<ErrorResponse>SignatureDoesNotMatch</ErrorResponse>"))
			}))
			defer ts.Close()

			_, err := newTestVerifier(ts).Resolve(context.Background(), "eu-central-1", map[string]string{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveUnreachableEndpoint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // closed immediately, connection will be refused

	_, err := newTestVerifier(ts).Resolve(context.Background(), "eu-central-1", map[string]string{})
	if !errors.Is(err, core.ErrUnavailable) {
		t.Errorf("Resolve() error = %v, want core.ErrUnavailable", err)
	}
}

func TestClientCacheReusesPerRegion(t *testing.T) {
	v := New()
	a := v.clientFor("eu-central-1")
	b := v.clientFor("eu-central-1")
	if a != b {
		t.Error("clientFor should memoize clients per region")
	}
	if c := v.clientFor("us-east-1"); c == a {
		t.Error("different regions must not share a client entry")
	}
	if want := "https://sts.us-east-1.amazonaws.com/"; v.clientFor("us-east-1").endpoint != want {
		t.Errorf("endpoint = %q, want %q", v.clientFor("us-east-1").endpoint, want)
	}
}
