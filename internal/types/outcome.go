package types

// Kind classifies why a request was rejected, per spec.md §7's typed
// error kinds: transient I/O, validation, protocol (fatal), configuration
// (fatal at startup), and authorization. Validation is the only kind
// reported back to a caller alongside a RejectedValidation outcome; the
// others either aren't reportable (Transient) or terminate the process
// before any response would matter (Protocol/Configuration).
type Kind int

const (
	KindValidation Kind = iota
	KindTransientIO
	KindProtocol
	KindConfiguration
	KindAuthorization
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransientIO:
		return "transient_io"
	case KindProtocol:
		return "protocol"
	case KindConfiguration:
		return "configuration"
	case KindAuthorization:
		return "authorization"
	default:
		return "unknown"
	}
}

// Status is the single outcome enum spec.md §7 names for both
// submit_block and submit_transaction: "only the first three are
// reported to peers; FatalProtocol terminates the process after
// flushing logs".
type Status int

const (
	Accepted Status = iota
	RejectedValidation
	RejectedTransient
	FatalProtocol
)

// Outcome is the result of one submit_block/submit_transaction call.
// Kind is only meaningful when Status is RejectedValidation.
type Outcome struct {
	Status Status
	Kind   Kind
	Err    error
}

func (o Outcome) String() string {
	switch o.Status {
	case Accepted:
		return "accepted"
	case RejectedValidation:
		return "rejected_validation:" + o.Kind.String()
	case RejectedTransient:
		return "rejected_transient"
	case FatalProtocol:
		return "fatal_protocol"
	default:
		return "unknown"
	}
}

// OutcomeAccepted is the zero-Kind success outcome.
func OutcomeAccepted() Outcome { return Outcome{Status: Accepted} }

// OutcomeRejectedValidation wraps a validation failure, the only
// RejectedValidation constructor that also carries its cause.
func OutcomeRejectedValidation(kind Kind, err error) Outcome {
	return Outcome{Status: RejectedValidation, Kind: kind, Err: err}
}

// OutcomeRejectedTransient wraps a transient I/O failure.
func OutcomeRejectedTransient(err error) Outcome {
	return Outcome{Status: RejectedTransient, Kind: KindTransientIO, Err: err}
}

// OutcomeFatalProtocol wraps a fatal protocol violation.
func OutcomeFatalProtocol(err error) Outcome {
	return Outcome{Status: FatalProtocol, Kind: KindProtocol, Err: err}
}
