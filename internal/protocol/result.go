package protocol

// Status is the outcome of one processed command.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusPartial Status = "PARTIAL"
	StatusInvalid Status = "INVALID"
	StatusWaiting Status = "WAITING"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusPartial, StatusInvalid, StatusWaiting:
		return true
	}
	return false
}

// Result is what the dispatcher returns for one command: a status, a
// human-readable message, and an optional structured payload.
type Result struct {
	Status  Status         `json:"status"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Payload map[string]any `json:"payload,omitempty"`
}

func Invalid(code, message string) Result {
	if !IsKnownCode(code) {
		code = ErrInternal
	}
	return Result{Status: StatusInvalid, Code: code, Message: message}
}

func Failure(code, message string) Result {
	if !IsKnownCode(code) {
		code = ErrInternal
	}
	return Result{Status: StatusFailure, Code: code, Message: message}
}

func Success(message string) Result {
	return Result{Status: StatusSuccess, Message: message}
}

func Partial(message string) Result {
	return Result{Status: StatusPartial, Message: message}
}

func Waiting(message string) Result {
	return Result{Status: StatusWaiting, Message: message}
}
