package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"rsksdk/ethclient"
	"rsksdk/rskerr"
)

// RevertedError reports a mined transaction whose receipt has status 0.
type RevertedError struct {
	TxHash  common.Hash
	Receipt *ethclient.Receipt
}

func (e *RevertedError) Error() string {
	return fmt.Sprintf("transaction %s reverted", e.TxHash.Hex())
}

// Is matches rskerr.ErrTransactionReverted and rskerr.ErrTransaction.
func (e *RevertedError) Is(target error) bool {
	return rskerr.IsKind(rskerr.ErrTransactionReverted, target)
}

// isTransient reports whether err is a connectivity failure worth retrying.
// Errors the node answered with, including rate limiting and HTTP status
// errors, are not transient.
func isTransient(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func isNonceTooLow(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "nonce too low") || strings.Contains(m, "nonce is too low")
}

// isRevert reports whether the node rejected a call because the EVM
// reverted. geth uses code 3, RSKj code -32015.
func isRevert(err error) bool {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	code := rpcErr.ErrorCode()
	return code == 3 || code == -32015 || strings.Contains(strings.ToLower(rpcErr.Error()), "revert")
}

// revertReason decodes an Error(string) payload from the error data, or
// returns "".
func revertReason(err error) string {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return ""
	}
	s, ok := dataErr.ErrorData().(string)
	if !ok {
		return ""
	}
	raw, decErr := hexutil.Decode(s)
	if decErr != nil {
		return ""
	}
	reason, unpackErr := abi.UnpackRevert(raw)
	if unpackErr != nil {
		return ""
	}
	return reason
}

func toRPCError(err error) *rskerr.RPCError {
	out := &rskerr.RPCError{Message: err.Error(), Err: err}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		out.Code = rpcErr.ErrorCode()
		out.Message = rpcErr.Error()
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		out.Data = dataErr.ErrorData()
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		out.Code = httpErr.StatusCode
		out.Message = fmt.Sprintf("%s: %s", httpErr.Status, httpErr.Body)
	}
	return out
}

// classify maps a transport or node error to an SDK error kind. Errors that
// already carry a kind pass through.
func classify(method string, err error) error {
	if err == nil {
		return nil
	}
	if rskerr.KindOf(err) != nil {
		return err
	}
	var reverted *RevertedError
	if errors.As(err, &reverted) {
		return err
	}
	if errors.Is(err, context.Canceled) || isTransient(err) {
		return rskerr.Wrap(rskerr.ErrProviderConnection, err, "cannot connect to RPC (%s)", method)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && isNonceTooLow(rpcErr.Error()) {
		return rskerr.Wrap(rskerr.ErrNonceTooLow, err, "%s rejected", method)
	}
	return toRPCError(err)
}
