package api

import (
	"context"
	"strconv"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/event"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"

	"github.com/zmlAEQ/aggverify/internal/service"
	"github.com/zmlAEQ/aggverify/internal/verifier"
	"github.com/zmlAEQ/aggverify/pkg/logger"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
	"github.com/zmlAEQ/aggverify/pkg/trace"
)

// CloudEvent types accepted on /events and produced in reply.
const (
	TypeInit       = "aggverify.init"
	TypeAccumulate = "aggverify.accumulate"
	TypeFinalize   = "aggverify.finalize"
	TypeVerify     = "aggverify.verify"
	TypeOutcome    = "aggverify.outcome"

	Source = "aggverify"
	// ExtInResponseTo names the extension carrying the request event ID.
	ExtInResponseTo = "inresponseto"
)

var kinds = map[string]verifier.Kind{
	TypeInit:       verifier.KindInit,
	TypeAccumulate: verifier.KindAccumulate,
	TypeFinalize:   verifier.KindFinalize,
	TypeVerify:     verifier.KindVerify,
}

// Payload is the JSON data of a request event. Points are compressed and
// base64 encoded.
type Payload struct {
	Generator  []byte   `json:"generator,omitempty"`
	PublicKeys [][]byte `json:"public_keys,omitempty"`
	Message    []byte   `json:"message,omitempty"`
	Signatures [][]byte `json:"signatures,omitempty"`
}

// Submitter runs one request to completion.
type Submitter interface {
	Submit(ctx context.Context, req verifier.Request) verifier.Outcome
}

// Handle turns a request event into a verifier request and replies with an
// aggverify.outcome event. Verification failures are reported in the outcome;
// only malformed events and an unavailable verifier produce non-2xx results.
func (s *Service) Handle(ctx context.Context, in event.Event) (*event.Event, error) {
	kind, ok := kinds[in.Type()]
	if !ok {
		s.count(in.Type(), 400)
		return nil, cehttp.NewResult(400, "unknown event type %q", in.Type())
	}
	var pl Payload
	if len(in.Data()) > 0 {
		if err := in.DataAs(&pl); err != nil {
			s.count(in.Type(), 400)
			return nil, cehttp.NewResult(400, "got error while unmarshalling data: %v", err)
		}
	}
	ctx = trace.WithTraceID(ctx, in.ID())
	out := s.sub.Submit(ctx, verifier.Request{
		Kind:       kind,
		Generator:  pl.Generator,
		PublicKeys: pl.PublicKeys,
		Message:    pl.Message,
		Signatures: pl.Signatures,
	})
	if out.Category == service.CategoryUnavailable {
		s.count(in.Type(), 503)
		return nil, cehttp.NewResult(503, "%s", out.Reason)
	}

	resp := event.New()
	resp.SetID(uuid.NewString())
	resp.SetSource(Source)
	resp.SetType(TypeOutcome)
	resp.SetExtension(ExtInResponseTo, in.ID())
	if err := resp.SetData(cloudevents.ApplicationJSON, out); err != nil {
		s.count(in.Type(), 500)
		return nil, cehttp.NewResult(500, "got error while marshalling data: %v", err)
	}
	s.count(in.Type(), 200)
	logger.InfoJ("api_event", map[string]any{"type": in.Type(), "ok": out.OK, "category": out.Category, "trace_id": in.ID()})
	return &resp, nil
}

func (s *Service) count(typ string, code int) {
	metrics.Inc("api_requests_total", map[string]string{"type": typ, "code": strconv.Itoa(code)})
}
