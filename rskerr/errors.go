// Package rskerr defines the error kinds surfaced by the SDK.
//
// Every failure returned by the SDK matches exactly one leaf kind with
// errors.Is, and also every parent of that kind, so callers can branch on
// either a precise condition (ErrNonceTooLow) or a category (ErrTransaction):
//
//	ErrAddress        > ErrInvalidAddress
//	ErrWallet         > ErrInvalidPrivateKey, ErrKeystoreDecryption, ErrInsufficientFunds
//	ErrProvider       > ErrProviderConnection, ErrRPC
//	ErrTransaction    > ErrGasEstimation, ErrNonceTooLow, ErrTransactionReverted
//	ErrContract       > ErrABI, ErrToken > ErrAllowanceExceeded
//	ErrRNS            > ErrInvalidDomain, ErrDomainNotFound, ErrResolverNotFound
//
// The four groups a caller has to tell apart are: bad input (ErrAddress,
// ErrInvalidDomain, ErrInvalidPrivateKey), network unreachable
// (ErrProviderConnection), call rejected by the node (ErrRPC,
// ErrGasEstimation, ErrNonceTooLow) and executed-but-failed
// (ErrTransactionReverted).
package rskerr

import (
	"errors"
	"fmt"
)

var (
	ErrAddress        = errors.New("address error")
	ErrInvalidAddress = errors.New("invalid address")

	ErrWallet             = errors.New("wallet error")
	ErrInvalidPrivateKey  = errors.New("invalid private key")
	ErrKeystoreDecryption = errors.New("keystore decryption failed")
	ErrInsufficientFunds  = errors.New("insufficient funds")

	ErrProvider           = errors.New("provider error")
	ErrProviderConnection = errors.New("provider connection error")
	ErrRPC                = errors.New("rpc error")

	ErrTransaction         = errors.New("transaction error")
	ErrGasEstimation       = errors.New("gas estimation failed")
	ErrNonceTooLow         = errors.New("nonce too low")
	ErrTransactionReverted = errors.New("transaction reverted")

	ErrContract          = errors.New("contract error")
	ErrABI               = errors.New("abi error")
	ErrToken             = errors.New("token error")
	ErrAllowanceExceeded = errors.New("allowance exceeded")

	ErrRNS              = errors.New("rns error")
	ErrInvalidDomain    = errors.New("invalid domain")
	ErrDomainNotFound   = errors.New("domain not found")
	ErrResolverNotFound = errors.New("resolver not found")
)

var parents = map[error]error{
	ErrInvalidAddress: ErrAddress,

	ErrInvalidPrivateKey:  ErrWallet,
	ErrKeystoreDecryption: ErrWallet,
	ErrInsufficientFunds:  ErrWallet,

	ErrProviderConnection: ErrProvider,
	ErrRPC:                ErrProvider,

	ErrGasEstimation:       ErrTransaction,
	ErrNonceTooLow:         ErrTransaction,
	ErrTransactionReverted: ErrTransaction,

	ErrABI:               ErrContract,
	ErrToken:             ErrContract,
	ErrAllowanceExceeded: ErrToken,

	ErrInvalidDomain:    ErrRNS,
	ErrDomainNotFound:   ErrRNS,
	ErrResolverNotFound: ErrRNS,
}

// IsKind reports whether kind equals target or descends from it.
func IsKind(kind, target error) bool {
	for k := kind; k != nil; k = parents[k] {
		if k == target {
			return true
		}
	}
	return false
}

// Error is a classified SDK failure. Msg is the human readable description,
// Err the optional underlying cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error's kind and every ancestor of it.
func (e *Error) Is(target error) bool { return IsKind(e.Kind, target) }

// New returns an error of the given kind.
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind that keeps err as its cause.
func Wrap(kind, err error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the most specific SDK kind carried by err, or nil.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var r *RPCError
	if errors.As(err, &r) {
		return ErrRPC
	}
	return nil
}

// RPCError is a call the node rejected or failed. Code and Data are the
// JSON-RPC error fields when the node supplied them. Reverted marks an
// eth_call the EVM reverted; Reason is the decoded Error(string), if any.
type RPCError struct {
	Code     int
	Message  string
	Data     interface{}
	Reverted bool
	Reason   string
	Err      error
}

func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	return "rpc error: " + e.Message
}

func (e *RPCError) Unwrap() error { return e.Err }

func (e *RPCError) Is(target error) bool { return IsKind(ErrRPC, target) }
