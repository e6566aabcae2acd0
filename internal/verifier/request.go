package verifier

import "context"

// Kind selects a request variant.
type Kind string

const (
	KindInit       Kind = "init"
	KindAccumulate Kind = "accumulate"
	KindFinalize   Kind = "finalize"
	KindVerify     Kind = "verify_direct"
)

// Request is one inbound request. Generator and PublicKeys are used by
// KindInit; Message and Signatures by KindAccumulate and KindVerify.
type Request struct {
	Kind       Kind
	Generator  []byte
	PublicKeys [][]byte
	Message    []byte
	Signatures [][]byte
}

// Outcome is the single pass/fail notification produced for a request.
// Finalized is set when a finalize consumed a pending pair.
type Outcome struct {
	OK        bool   `json:"ok"`
	Finalized bool   `json:"finalized,omitempty"`
	Category  string `json:"category,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// OutcomeOf converts an error to an Outcome.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Outcome{OK: true}
	}
	return Outcome{Category: Category(err), Reason: err.Error()}
}

// Handle runs req against v. Initialization is handled by whoever owns v, so
// KindInit here yields ErrAlreadyInitialized.
func (v *Verifier) Handle(ctx context.Context, req Request) Outcome {
	switch req.Kind {
	case KindAccumulate:
		return OutcomeOf(v.Accumulate(ctx, req.Message, req.Signatures))
	case KindFinalize:
		done, err := v.Finalize(ctx)
		out := OutcomeOf(err)
		out.Finalized = done
		return out
	case KindVerify:
		return OutcomeOf(v.VerifyDirect(ctx, req.Message, req.Signatures))
	case KindInit:
		return OutcomeOf(fail(string(req.Kind), ErrAlreadyInitialized, nil))
	default:
		return OutcomeOf(fail(string(req.Kind), ErrInvalidInput, errUnknownKind))
	}
}
