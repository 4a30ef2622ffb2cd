// Package errs defines the error taxonomy shared by every livetable package.
//
// Each category is a struct carrying a Code plus the structured fields needed
// to diagnose it. Callers classify errors with the Is* helpers, which use
// errors.As and therefore see through fmt.Errorf("...: %w") wrapping.
//
//   - RegistrationError: an entity type cannot be built. Fatal, never retried.
//   - DispatchError: no handler, or the handler cannot be invoked. Fatal per record.
//   - ValidationError: a single operation was given unusable input.
//   - StorageError / RpcError: a collaborator call failed; carries the operation
//     and target so the failure can be traced to a table or contract.
package errs

import (
	"errors"
	"fmt"
)

// Code categorizes an error within its taxonomy.
type Code string

const (
	// CodeNoUniqueKey indicates an entity type declared no uniqueness-key properties.
	CodeNoUniqueKey Code = "NO_UNIQUE_KEY"

	// CodeUnknownUniqueProperty indicates a uniqueness key names an unregistered property.
	CodeUnknownUniqueProperty Code = "UNKNOWN_UNIQUE_PROPERTY"

	// CodeColumnCollision indicates two properties map to the same column.
	CodeColumnCollision Code = "COLUMN_COLLISION"

	// CodeMultiplePrimaryTimestamps indicates more than one primary ordering timestamp.
	CodeMultiplePrimaryTimestamps Code = "MULTIPLE_PRIMARY_TIMESTAMPS"

	// CodeUnmappableType indicates a semantic type with no storage type.
	CodeUnmappableType Code = "UNMAPPABLE_TYPE"

	// CodeNoHandler indicates no registration matched an incoming name.
	CodeNoHandler Code = "NO_HANDLER"

	// CodeHandlerNotInvocable indicates the resolved method does not exist.
	CodeHandlerNotInvocable Code = "HANDLER_NOT_INVOCABLE"

	// CodeMissingUniqueValue indicates a uniqueness-key property has no value.
	CodeMissingUniqueValue Code = "MISSING_UNIQUE_VALUE"

	// CodeMissingOrderingTimestamp indicates the primary ordering timestamp has no value.
	CodeMissingOrderingTimestamp Code = "MISSING_ORDERING_TIMESTAMP"

	// CodeUnknownProperty indicates a reference to a property that is not registered.
	CodeUnknownProperty Code = "UNKNOWN_PROPERTY"

	// CodeInvalidValue indicates a value incompatible with its property's type.
	CodeInvalidValue Code = "INVALID_VALUE"
)

// RegistrationError reports an entity type that cannot be constructed.
type RegistrationError struct {
	Code       Code
	Message    string
	EntityType string
	Properties []string
}

func (e *RegistrationError) Error() string {
	if e.EntityType != "" {
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.EntityType)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DispatchError reports an input that could not be routed to a handler.
type DispatchError struct {
	Code   Code
	Input  string // incoming event or call name
	Method string // resolved method name, if any
}

func (e *DispatchError) Error() string {
	switch e.Code {
	case CodeNoHandler:
		return fmt.Sprintf("%s: no handler registered for %s", e.Code, e.Input)
	case CodeHandlerNotInvocable:
		return fmt.Sprintf("%s: handler %q for %s is not callable", e.Code, e.Method, e.Input)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Input)
	}
}

// ValidationError reports an operation given unusable input.
type ValidationError struct {
	Code     Code
	Message  string
	Property string
}

func (e *ValidationError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("%s: %s (property=%s)", e.Code, e.Message, e.Property)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// StorageError wraps a row-storage collaborator failure.
type StorageError struct {
	Op     string // select, upsert, tx
	Target string // table name, or "multiple" for transactions
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s (table=%s): %v", e.Op, e.Target, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// RpcError wraps a contract-call or metadata-resolution failure.
type RpcError struct {
	Op      string // call, resolve_metadata
	ChainID string
	Target  string // contract address or metadata pointer
	Method  string
	Err     error
}

func (e *RpcError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("rpc %s (chain=%s, target=%s, method=%s): %v",
			e.Op, e.ChainID, e.Target, e.Method, e.Err)
	}
	return fmt.Sprintf("rpc %s (target=%s): %v", e.Op, e.Target, e.Err)
}

func (e *RpcError) Unwrap() error {
	return e.Err
}

// NewRegistration creates a RegistrationError.
func NewRegistration(code Code, entityType, message string, props ...string) *RegistrationError {
	return &RegistrationError{Code: code, Message: message, EntityType: entityType, Properties: props}
}

// NewValidation creates a ValidationError.
func NewValidation(code Code, property, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message, Property: property}
}

// IsRegistration returns true if err is, or wraps, a RegistrationError.
func IsRegistration(err error) bool {
	var re *RegistrationError
	return errors.As(err, &re)
}

// IsDispatch returns true if err is, or wraps, a DispatchError.
func IsDispatch(err error) bool {
	var de *DispatchError
	return errors.As(err, &de)
}

// IsValidation returns true if err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage returns true if err is, or wraps, a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsRpc returns true if err is, or wraps, an RpcError.
func IsRpc(err error) bool {
	var re *RpcError
	return errors.As(err, &re)
}

// CodeOf extracts the Code from any taxonomy error, or "" if err carries none.
func CodeOf(err error) Code {
	var re *RegistrationError
	if errors.As(err, &re) {
		return re.Code
	}
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
