package domain

import "fmt"

// EngineError is the unified error type for the engine.
// Each error has a numeric code and human-readable message.
type EngineError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
}

// NewEngineError creates a new EngineError.
func NewEngineError(code int, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg}
}

// WrapEngineError creates an EngineError that includes a cause.
func WrapEngineError(code int, msg string, cause error) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf("%s: %v", msg, cause)}
}

// ---- Cipher errors (-32200 to -32219) ----

var (
	ErrEncryption = &EngineError{Code: -32200, Message: "encryption failed"}
	// ErrDecryption covers every decrypt anomaly (short blob, bad padding,
	// wrong secret) so callers cannot distinguish which check failed.
	ErrDecryption         = &EngineError{Code: -32201, Message: "decryption failed"}
	ErrContentUnavailable = &EngineError{Code: -32202, Message: "content unavailable"}
)

// ---- Artwork / disclosure errors (-32220 to -32249) ----

var (
	ErrArtworkNotFound      = &EngineError{Code: -32220, Message: "artwork not found"}
	ErrDuplicateArtwork     = &EngineError{Code: -32221, Message: "artwork already exists"}
	ErrNotRevealed          = &EngineError{Code: -32222, Message: "artwork has not been revealed"}
	ErrOptimisticLock       = &EngineError{Code: -32223, Message: "reveal state was modified concurrently"}
	ErrUnknownConditionKind = &EngineError{Code: -32224, Message: "unknown condition kind"}
	// ErrInvalidConditionParams is logged and treated as "not met"; it is
	// never surfaced to a caller as a failure.
	ErrInvalidConditionParams = &EngineError{Code: -32225, Message: "invalid condition parameters"}
	ErrConditionNotFound      = &EngineError{Code: -32226, Message: "reveal condition not found"}
	ErrEmptyContent           = &EngineError{Code: -32227, Message: "artwork content is empty"}
)

// ---- Store / Config errors (-32250 to -32279) ----

var (
	ErrStoreInit     = &EngineError{Code: -32250, Message: "failed to initialize store"}
	ErrStoreQuery    = &EngineError{Code: -32251, Message: "store query failed"}
	ErrStoreWrite    = &EngineError{Code: -32252, Message: "store write failed"}
	ErrConfigInvalid = &EngineError{Code: -32253, Message: "invalid configuration"}
)
