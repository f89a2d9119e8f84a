package jsonrpcledger

import (
	"errors"
	"fmt"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/ethereum/go-ethereum/rpc"
)

// domainErrorCode is the json-rpc code of errors rejected by the ledger.
// The domain error code travels in the error data.
const domainErrorCode = -32000

type rpcError struct {
	err *domain.Error
}

func (e rpcError) Error() string          { return e.err.Error() }
func (e rpcError) ErrorCode() int         { return domainErrorCode }
func (e rpcError) ErrorData() interface{} { return e.err.Code }

// toRpcError keeps domain errors recognizable on the other side.
func toRpcError(err error) error {
	if err == nil {
		return nil
	}
	var e *domain.Error
	if errors.As(err, &e) {
		return rpcError{e}
	}
	return err
}

// fromRpcError maps a call failure back to a domain error. Errors returned
// by the ledger are rebuilt from their code, anything else is a transport
// failure and is reported as fallback.
func fromRpcError(err error, fallback *domain.Error) error {
	if err == nil {
		return nil
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if code, ok := dataErr.ErrorData().(string); ok {
			if e, ok := domain.ErrorFromCode(code); ok {
				return e
			}
		}
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() != domainErrorCode {
		return fmt.Errorf("ledger rejected call: %w", err)
	}
	return fmt.Errorf("%w: %s", fallback, err)
}
