package keyring

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind classifies every failure the keyring reports.
type ErrorKind string

const (
	KindNotFound                ErrorKind = "NotFound"
	KindInvalidConfig           ErrorKind = "InvalidConfig"
	KindInvalidArgument         ErrorKind = "InvalidArgument"
	KindDuplicateAddress        ErrorKind = "DuplicateAddress"
	KindUnsupportedOperation    ErrorKind = "UnsupportedOperation"
	KindUnsupportedChain        ErrorKind = "UnsupportedChain"
	KindScopeMismatch           ErrorKind = "ScopeMismatch"
	KindAccountChainUnsupported ErrorKind = "AccountChainUnsupported"
	KindUnsupportedMethod       ErrorKind = "UnsupportedMethod"
	KindMissingConfig           ErrorKind = "MissingConfig"
	KindSensitiveFailure        ErrorKind = "SensitiveFailure"
	// KindInternal covers collaborator failures: RPC, storage, host events.
	KindInternal ErrorKind = "Internal"
)

const (
	AccountNotFoundError         = "account not found"
	InvalidPrivateKeyError       = "invalid private key"
	PrivateKeyRequiredError      = "private key is required"
	InvalidSaltError             = "invalid salt value"
	AddressInUseError            = "account abstraction address already in use"
	SaltCollisionError           = "account salt already used, please retry"
	NotEIP1271Error              = "account does not implement EIP-1271"
	SingleTransactionError       = "only one transaction per UserOp supported"
	BundlerURLMissingError       = "bundler URL not found for chain"
	EntryPointMissingError       = "unknown entrypoint for chain"
	FactoryMissingError          = "unknown AA factory address for chain"
	StorageWriteError            = "cannot write keyring state"
	InvalidTransactionError      = "invalid transaction"
	InvalidUserOperationError    = "invalid user operation"
	InvalidPaymasterRequestError = "invalid paymaster parameters"
)

// Error is the result type of every keyring operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil && e.Kind != KindSensitiveFailure {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// GRPCStatus lets status.FromError and grpc servers report the kind with a
// matching code.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Kind.Code(), e.Error())
}

func (k ErrorKind) Code() codes.Code {
	switch k {
	case KindNotFound:
		return codes.NotFound
	case KindInvalidConfig, KindInvalidArgument, KindScopeMismatch:
		return codes.InvalidArgument
	case KindDuplicateAddress:
		return codes.AlreadyExists
	case KindUnsupportedOperation, KindUnsupportedMethod:
		return codes.Unimplemented
	case KindUnsupportedChain, KindAccountChainUnsupported, KindMissingConfig:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

var (
	ErrNotFound                = &Error{Kind: KindNotFound}
	ErrInvalidConfig           = &Error{Kind: KindInvalidConfig}
	ErrInvalidArgument         = &Error{Kind: KindInvalidArgument}
	ErrDuplicateAddress        = &Error{Kind: KindDuplicateAddress}
	ErrUnsupportedOperation    = &Error{Kind: KindUnsupportedOperation}
	ErrUnsupportedChain        = &Error{Kind: KindUnsupportedChain}
	ErrScopeMismatch           = &Error{Kind: KindScopeMismatch}
	ErrAccountChainUnsupported = &Error{Kind: KindAccountChainUnsupported}
	ErrUnsupportedMethod       = &Error{Kind: KindUnsupportedMethod}
	ErrMissingConfig           = &Error{Kind: KindMissingConfig}
	ErrSensitiveFailure        = &Error{Kind: KindSensitiveFailure}
	ErrInternal                = &Error{Kind: KindInternal}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// sensitiveError never carries the cause text, which may include key material.
func sensitiveError() *Error {
	return &Error{Kind: KindSensitiveFailure, Message: InvalidPrivateKeyError}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
