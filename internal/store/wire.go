package store

// Wire frames for the gateway protocol: JSON over a websocket, one frame
// per line of the Store contract. JSON keeps the protocol readable by
// non-Go subscribers on the same store.

const (
	OpCreate      = "create"
	OpPatch       = "patch"
	OpDelete      = "delete"
	OpRead        = "read"
	OpList        = "list"
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"

	EventResult   = "result"
	EventSnapshot = "snapshot"
)

type Request struct {
	Seq int64  `json:"seq"`
	Op  string `json:"op"`
	Key string `json:"key,omitempty"`
	// Doc carries the full document for create and the field patch for
	// patch (field names may be dotted paths).
	Doc Doc   `json:"doc,omitempty"`
	Sub int64 `json:"sub,omitempty"`
}

type Response struct {
	Event string         `json:"event"`
	Seq   int64          `json:"seq,omitempty"`
	Error string         `json:"error,omitempty"`
	Key   string         `json:"key,omitempty"`
	Doc   Doc            `json:"doc,omitempty"`
	Docs  map[string]Doc `json:"docs,omitempty"`
	Sub   int64          `json:"sub,omitempty"`
	// Deleted marks a snapshot push for a removed document.
	Deleted bool `json:"deleted,omitempty"`
}

const (
	codeExists   = "exists"
	codeNotFound = "not_found"
	codeInternal = "internal"
)

// ErrorCode maps a store error onto its wire code.
func ErrorCode(err error) string {
	switch err {
	case nil:
		return ""
	case ErrExists:
		return codeExists
	case ErrNotFound:
		return codeNotFound
	default:
		return codeInternal
	}
}

// CodeError maps a wire code back onto the store error a caller expects.
func CodeError(code string) error {
	switch code {
	case "":
		return nil
	case codeExists:
		return ErrExists
	case codeNotFound:
		return ErrNotFound
	default:
		return ErrUnavailable
	}
}
