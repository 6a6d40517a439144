package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Session layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrInvalidTarget:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// NewError builds an ERROR message. Unknown codes are reported as E_INTERNAL.
func NewError(code, message string) ErrorMsg {
	if code == "" || !IsKnownCode(code) {
		code = ErrInternal
	}
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		Code:            code,
		Message:         message,
	}
}
