package domain

type ResultKind int

const (
	ResultIdle ResultKind = iota
	ResultInFlight
	ResultOK
	ResultErr
)

func (k ResultKind) String() string {
	switch k {
	case ResultInFlight:
		return "in_flight"
	case ResultOK:
		return "ok"
	case ResultErr:
		return "error"
	default:
		return "idle"
	}
}

// Result is the console's last-result panel. At most one of ok or error is
// ever shown because there is only one payload.
type Result struct {
	Kind    ResultKind
	Payload string
}

func Idle() Result {
	return Result{Kind: ResultIdle}
}

func InFlight() Result {
	return Result{Kind: ResultInFlight}
}

func OK(payload string) Result {
	return Result{Kind: ResultOK, Payload: payload}
}

func Err(payload string) Result {
	return Result{Kind: ResultErr, Payload: payload}
}

func (r Result) Settled() bool {
	return r.Kind == ResultOK || r.Kind == ResultErr
}
