package strategy

// Outcome 是单次尝试的评估结果。
type Outcome string

const (
	OutcomeSucceeded        Outcome = "succeeded"
	OutcomeRefused          Outcome = "refused"
	OutcomeNoToolCall       Outcome = "no_tool_call"
	OutcomeWrongTool        Outcome = "wrong_tool"
	OutcomeInvalidArguments Outcome = "invalid_arguments"
	OutcomeEmptyResponse    Outcome = "empty_response"
	OutcomeTransportError   Outcome = "transport_error"
)

// Observer 接收每次尝试的结果（用于指标采集）。
type Observer interface {
	ObserveAttempt(backend string, outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(string, Outcome) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
