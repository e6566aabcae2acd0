package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/event"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"

	"github.com/zmlAEQ/aggverify/internal/service"
	"github.com/zmlAEQ/aggverify/internal/verifier"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
	"github.com/zmlAEQ/aggverify/pkg/trace"
)

type fakeSubmitter struct {
	got   []verifier.Request
	trace string
	out   verifier.Outcome
}

func (f *fakeSubmitter) Submit(ctx context.Context, req verifier.Request) verifier.Outcome {
	f.got = append(f.got, req)
	f.trace, _ = trace.FromContext(ctx)
	return f.out
}

func newEvent(t *testing.T, id, typ string, data any) event.Event {
	t.Helper()
	e := event.New()
	e.SetID(id)
	e.SetSource("test")
	e.SetType(typ)
	if data != nil {
		if err := e.SetData(cloudevents.ApplicationJSON, data); err != nil { t.Fatalf("set data: %v", err) }
	}
	return e
}

func statusOf(err error) int {
	var res *cehttp.Result
	if errors.As(err, &res) { return res.StatusCode }
	return 0
}

func TestHandle_MapsAccumulate(t *testing.T) {
	metrics.Reset()
	sub := &fakeSubmitter{out: verifier.Outcome{OK: true}}
	s := New("", sub)
	in := newEvent(t, "req-1", TypeAccumulate, Payload{Message: []byte{1, 2}, Signatures: [][]byte{{3}, {4}}})

	resp, err := s.Handle(context.Background(), in)
	if err != nil { t.Fatalf("handle: %v", err) }
	if len(sub.got) != 1 || sub.got[0].Kind != verifier.KindAccumulate { t.Fatalf("submitted %+v", sub.got) }
	if string(sub.got[0].Message) != "\x01\x02" || len(sub.got[0].Signatures) != 2 { t.Fatalf("payload lost: %+v", sub.got[0]) }
	if sub.trace != "req-1" { t.Fatalf("trace id %q", sub.trace) }
	if resp.Type() != TypeOutcome { t.Fatalf("type %q", resp.Type()) }
	if v, _ := resp.Extensions()[ExtInResponseTo].(string); v != "req-1" { t.Fatalf("inresponseto %v", resp.Extensions()) }
	var out verifier.Outcome
	if err := resp.DataAs(&out); err != nil || !out.OK { t.Fatalf("outcome %+v err=%v", out, err) }
	if !strings.Contains(metrics.DumpProm(), `api_requests_total{code="200",type="aggverify.accumulate"} 1`) {
		t.Fatalf("missing api metric: %s", metrics.DumpProm())
	}
}

func TestHandle_FinalizeWithoutData(t *testing.T) {
	sub := &fakeSubmitter{out: verifier.Outcome{OK: true, Finalized: true}}
	resp, err := New("", sub).Handle(context.Background(), newEvent(t, "f", TypeFinalize, nil))
	if err != nil { t.Fatalf("handle: %v", err) }
	if sub.got[0].Kind != verifier.KindFinalize { t.Fatalf("kind %q", sub.got[0].Kind) }
	var out verifier.Outcome
	if err := resp.DataAs(&out); err != nil || !out.Finalized { t.Fatalf("outcome %+v err=%v", out, err) }
}

func TestHandle_FailedVerificationIsNotAnHTTPError(t *testing.T) {
	sub := &fakeSubmitter{out: verifier.Outcome{Category: "mismatch", Reason: "aggregate signature mismatch"}}
	resp, err := New("", sub).Handle(context.Background(), newEvent(t, "v", TypeVerify, Payload{Message: []byte{1}}))
	if err != nil { t.Fatalf("handle: %v", err) }
	var out verifier.Outcome
	if err := resp.DataAs(&out); err != nil || out.OK || out.Category != "mismatch" { t.Fatalf("outcome %+v err=%v", out, err) }
}

func TestHandle_UnknownType400(t *testing.T) {
	sub := &fakeSubmitter{}
	_, err := New("", sub).Handle(context.Background(), newEvent(t, "x", "aggverify.bogus", nil))
	if statusOf(err) != 400 { t.Fatalf("expected 400, got %v", err) }
	if len(sub.got) != 0 { t.Fatalf("submitted on bad type") }
}

func TestHandle_BadData400(t *testing.T) {
	e := event.New()
	e.SetID("bad")
	e.SetSource("test")
	e.SetType(TypeInit)
	if err := e.SetData(cloudevents.ApplicationJSON, []byte(`{"public_keys": 5}`)); err != nil { t.Fatalf("set data: %v", err) }
	_, err := New("", &fakeSubmitter{}).Handle(context.Background(), e)
	if statusOf(err) != 400 { t.Fatalf("expected 400, got %v", err) }
}

func TestHandle_Unavailable503(t *testing.T) {
	sub := &fakeSubmitter{out: verifier.Outcome{Category: service.CategoryUnavailable, Reason: "bus: full"}}
	_, err := New("", sub).Handle(context.Background(), newEvent(t, "u", TypeFinalize, nil))
	if statusOf(err) != 503 { t.Fatalf("expected 503, got %v", err) }
}

func TestHealth(t *testing.T) {
	h, err := New("", &fakeSubmitter{}).Handler(context.Background())
	if err != nil { t.Fatalf("handler: %v", err) }
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != 200 { t.Fatalf("expected 200, got %d", rr.Code) }
}

func TestEvents_BinaryModeOverHTTP(t *testing.T) {
	sub := &fakeSubmitter{out: verifier.Outcome{OK: true}}
	h, err := New("", sub).Handler(context.Background())
	if err != nil { t.Fatalf("handler: %v", err) }
	srv := httptest.NewServer(h)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/events", strings.NewReader(`{"message":"AQI=","signatures":["Aw=="]}`))
	req.Header.Set("Ce-Specversion", "1.0")
	req.Header.Set("Ce-Id", "http-1")
	req.Header.Set("Ce-Source", "curl")
	req.Header.Set("Ce-Type", TypeVerify)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("post: %v", err) }
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 { t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body) }
	if resp.Header.Get("Ce-Type") != TypeOutcome { t.Fatalf("reply type %q", resp.Header.Get("Ce-Type")) }
	if !strings.Contains(string(body), `"ok":true`) { t.Fatalf("body %s", body) }
	if len(sub.got) != 1 || sub.got[0].Kind != verifier.KindVerify || string(sub.got[0].Message) != "\x01\x02" {
		t.Fatalf("submitted %+v", sub.got)
	}
}

func TestEvents_BadTypeOverHTTP(t *testing.T) {
	h, err := New("", &fakeSubmitter{}).Handler(context.Background())
	if err != nil { t.Fatalf("handler: %v", err) }
	srv := httptest.NewServer(h)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/events", strings.NewReader(`{}`))
	req.Header.Set("Ce-Specversion", "1.0")
	req.Header.Set("Ce-Id", "http-2")
	req.Header.Set("Ce-Source", "curl")
	req.Header.Set("Ce-Type", "nope")
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("post: %v", err) }
	resp.Body.Close()
	if resp.StatusCode != 400 { t.Fatalf("expected 400, got %d", resp.StatusCode) }
}
