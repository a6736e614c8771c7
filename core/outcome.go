package core

// SyncState reports how an entity action left the identity provider relative to the datastore.
type SyncState string

const (
	// SyncNone: the entity kind carries no identity account.
	SyncNone SyncState = ""
	// CommittedLocally: the datastore change is committed and the identity provider agrees with it.
	CommittedLocally SyncState = "committed_locally"
	// IdentitySyncPending: the datastore change is committed; no identity call was needed or it was deferred.
	IdentitySyncPending SyncState = "identity_sync_pending"
	// IdentitySyncFailed: the datastore change is committed but the identity call failed.
	IdentitySyncFailed SyncState = "identity_sync_failed"
)

// Outcome is the uniform result of an entity action.
type Outcome struct {
	Success bool      `json:"success"`
	Error   bool      `json:"error"`
	Message string    `json:"message,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Sync    SyncState `json:"sync,omitempty"`
	ID      string    `json:"id,omitempty"`

	Fields map[string]string `json:"fields,omitempty"`
}

func Succeeded(id string, sync SyncState) Outcome {
	return Outcome{Success: true, ID: id, Sync: sync}
}

func Failed(kind ErrorKind, msg string) Outcome {
	return Outcome{Error: true, Kind: kind, Message: msg}
}

// WithMessage returns a copy of o with msg set.
func (o Outcome) WithMessage(msg string) Outcome {
	o.Message = msg
	return o
}
