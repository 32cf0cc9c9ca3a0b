package protocol

const (
	// Transport/session validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrSessionBusy     = "E_SESSION_BUSY"

	// Parse layer.
	ErrUnknownCommand = "E_UNKNOWN_COMMAND"
	ErrBadArguments   = "E_BAD_ARGUMENTS"

	// Validation layer.
	ErrNotFound       = "E_NOT_FOUND"
	ErrNotDiscovered  = "E_NOT_DISCOVERED"
	ErrNotNearby      = "E_NOT_NEARBY"
	ErrCapacity       = "E_CAPACITY"
	ErrWeightLimit    = "E_WEIGHT_LIMIT"
	ErrMissingAbility = "E_MISSING_ABILITY"
	ErrContainerShut  = "E_CONTAINER_CLOSED"
	ErrWrongState     = "E_WRONG_STATE"
	ErrOccupied       = "E_OCCUPIED"
	ErrCoopMode       = "E_COOP_MODE"
	ErrNoPath         = "E_NO_PATH"

	// Execution layer.
	ErrInconsistent = "E_INCONSISTENT"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrSessionBusy:     {},
	ErrUnknownCommand:  {},
	ErrBadArguments:    {},
	ErrNotFound:        {},
	ErrNotDiscovered:   {},
	ErrNotNearby:       {},
	ErrCapacity:        {},
	ErrWeightLimit:     {},
	ErrMissingAbility:  {},
	ErrContainerShut:   {},
	ErrWrongState:      {},
	ErrOccupied:        {},
	ErrCoopMode:        {},
	ErrNoPath:          {},
	ErrInconsistent:    {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
