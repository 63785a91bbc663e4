package signer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EgorLis/webcast/internal/fallback"
)

type fakeBackend struct {
	name  string
	conf  bool
	err   error
	calls int
}

func (f *fakeBackend) Name() string     { return f.name }
func (f *fakeBackend) Configured() bool { return f.conf }
func (f *fakeBackend) Sign(context.Context, Request) (SignedRequest, error) {
	f.calls++
	if f.err != nil {
		return SignedRequest{}, f.err
	}
	return SignedRequest{URL: "signed-by-" + f.name}, nil
}

func TestGateway_AutoWithoutSecondaryKeepsPrimaryError(t *testing.T) {
	primaryErr := &SigningError{Backend: "cloud", Err: errors.New("quota")}
	p := &fakeBackend{name: "cloud", conf: true, err: primaryErr}
	s := &fakeBackend{name: "custom", conf: false}
	g := &Gateway{Primary: p, Secondary: s}

	_, err := g.Sign(context.Background(), ContextAuto, Request{URL: "u"})
	if err != primaryErr {
		t.Fatalf("err = %v, want primary error unchanged", err)
	}
	if s.calls != 0 {
		t.Error("unconfigured secondary was called")
	}
}

func TestGateway_AutoFallsBack(t *testing.T) {
	p := &fakeBackend{name: "cloud", conf: true, err: errors.New("down")}
	s := &fakeBackend{name: "custom", conf: true}
	g := &Gateway{Primary: p, Secondary: s}

	out, err := g.Sign(context.Background(), ContextAuto, Request{URL: "u"})
	if err != nil {
		t.Fatal(err)
	}
	if out.URL != "signed-by-custom" || p.calls != 1 || s.calls != 1 {
		t.Errorf("out=%+v primary=%d secondary=%d", out, p.calls, s.calls)
	}
}

func TestGateway_AutoPrimarySuccessSkipsSecondary(t *testing.T) {
	p := &fakeBackend{name: "cloud", conf: true}
	s := &fakeBackend{name: "custom", conf: true}
	g := &Gateway{Primary: p, Secondary: s}

	if _, err := g.Sign(context.Background(), ContextAuto, Request{}); err != nil {
		t.Fatal(err)
	}
	if s.calls != 0 {
		t.Error("secondary called after primary success")
	}
}

func TestGateway_AutoBothFail(t *testing.T) {
	g := &Gateway{
		Primary:   &fakeBackend{name: "cloud", conf: true, err: errors.New("a")},
		Secondary: &fakeBackend{name: "custom", conf: true, err: errors.New("b")},
	}
	_, err := g.Sign(context.Background(), ContextAuto, Request{})
	var agg *fallback.AggregateError
	if !errors.As(err, &agg) || len(agg.Errors) != 2 {
		t.Fatalf("err = %v", err)
	}
}

func TestGateway_SecondaryNotConfigured(t *testing.T) {
	g := &Gateway{Primary: &fakeBackend{name: "cloud", conf: true}}
	_, err := g.Sign(context.Background(), ContextSecondary, Request{})
	if !errors.Is(err, ErrBackendNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestService_Sign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/webcast/sign_url" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-api-key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body signBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"response": map[string]string{
				"signedUrl": body.URL + "&X-Bogus=1",
				"userAgent": "ua-signed",
			},
		})
	}))
	defer srv.Close()

	s := NewCloud(Config{BasePath: srv.URL, APIKey: "key"})
	out, err := s.Sign(context.Background(), Request{URL: "https://x/y?a=1", Method: "get"})
	if err != nil {
		t.Fatal(err)
	}
	if out.URL != "https://x/y?a=1&X-Bogus=1" || out.UserAgent != "ua-signed" {
		t.Errorf("out = %+v", out)
	}

	_, err = s.Sign(context.Background(), Request{URL: "u", Method: http.MethodDelete})
	var se *SigningError
	if !errors.As(err, &se) || !errors.Is(err, ErrMethodNotSignable) || se.Backend != "cloud" {
		t.Errorf("DELETE err = %v", err)
	}

	noKey := NewCloud(Config{BasePath: srv.URL})
	if _, err := noKey.Sign(context.Background(), Request{URL: "u"}); !errors.Is(err, ErrPermission) {
		t.Errorf("no key err = %v", err)
	}
}

func TestService_SendRoomChatPremium(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":403,"message":"upgrade"}`))
	}))
	defer srv.Close()

	s := NewCloud(Config{BasePath: srv.URL})
	_, err := s.SendRoomChat(context.Background(), ChatPayload{RoomID: "1", Content: "hi", SessionID: "s", RegionToken: "useast"})
	var pe *PremiumFeatureError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PremiumFeatureError", err)
	}
	if pe.Message != "upgrade" {
		t.Errorf("message = %q", pe.Message)
	}
}

func TestService_SendRoomChatNeedsRegion(t *testing.T) {
	s := NewCloud(Config{})
	_, err := s.SendRoomChat(context.Background(), ChatPayload{RoomID: "1", SessionID: "s"})
	if !errors.Is(err, ErrIdentityParameter) {
		t.Fatalf("err = %v", err)
	}
}

func TestService_RoomIDPermissionCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"ok":false,"message":"no plan"}`))
	}))
	defer srv.Close()

	out, err := NewCustom(Config{BasePath: srv.URL}).RoomID(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if out.Code != http.StatusPaymentRequired || !IsPermissionCode(out.Code) {
		t.Errorf("code = %d", out.Code)
	}
}

func TestCustomConfigured(t *testing.T) {
	if NewCustom(Config{}).Configured() {
		t.Error("custom without base path must be unconfigured")
	}
	if !NewCloud(Config{}).Configured() {
		t.Error("cloud must default its base path")
	}
}
