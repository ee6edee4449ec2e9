package errors

import (
	"bytes"
	"reflect"
	"strings"
)

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal server error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"
	// GeneralNotFoundError represents a generic not found error.
	GeneralNotFoundError ErrorCode = "general_not_found_error"
	// GeneralUnauthorizedError represents a generic unauthorized error.
	GeneralUnauthorizedError ErrorCode = "general_unauthorized_error"

	// OrderInvalidQuantity represents an error when an order carries a non-positive quantity.
	OrderInvalidQuantity ErrorCode = "order_invalid_quantity"
	// OrderInvalidPrice represents an error when a priced order carries a missing or non-positive price.
	OrderInvalidPrice ErrorCode = "order_invalid_price"
	// OrderNotFound represents an error when an order id is unknown to the engine.
	OrderNotFound ErrorCode = "order_not_found"
	// OrderOverfill represents an invariant breach where a fill would exceed the requested quantity.
	OrderOverfill ErrorCode = "order_overfill"
	// OrderAlreadyTerminal represents an error when mutating an order in a terminal status.
	OrderAlreadyTerminal ErrorCode = "order_already_terminal"

	// SymbolNotFound represents an error when a symbol has no per-symbol state yet.
	SymbolNotFound ErrorCode = "symbol_not_found"

	// TradeInvalidPair represents an invariant breach where no execution price exists for a pair.
	TradeInvalidPair ErrorCode = "trade_invalid_pair"

	// LedgerInsufficientBalance represents an error when a user balance cannot cover an order.
	LedgerInsufficientBalance ErrorCode = "ledger_insufficient_balance"

	// TradePublishError represents an error when publishing a trade event to the stream.
	TradePublishError ErrorCode = "trade_publish_error"

	// SnapshotStoreError represents an error when persisting an engine snapshot.
	SnapshotStoreError ErrorCode = "snapshot_store_error"
	// SnapshotLoadError represents an error when loading an engine snapshot.
	SnapshotLoadError ErrorCode = "snapshot_load_error"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"
)

// BaseError is an `error` type containing an array of ErrorDetails.
// This error provides basic functions for performing transformations
// on a list of ErrorDetails.
type BaseError struct {
	details []*ErrorDetails
}

// NewBaseError create BaseError with ErrorDetails
func NewBaseError(details ...*ErrorDetails) *BaseError {
	return &BaseError{details: details}
}

// AddErrorDetails add more ErrorDetails to BaseError
func (b *BaseError) AddErrorDetails(errors ...*ErrorDetails) {
	b.details = append(b.details, errors...)
}

// GetDetails get array ErrorDetails on BaseError
func (b *BaseError) GetDetails() []*ErrorDetails {
	return b.details
}

// HasCode checks whether any of the carried ErrorDetails has the given code.
func (b *BaseError) HasCode(code ErrorCode) bool {
	for _, d := range b.details {
		if d.Code == string(code) {
			return true
		}
	}
	return false
}

// Error implement error interface
func (b *BaseError) Error() string {
	buff := bytes.NewBufferString("")

	buff.WriteString("Error on\n")
	for _, err := range b.details {
		buff.WriteString("code: ")
		buff.WriteString(err.Code)
		buff.WriteString("; error: ")
		buff.WriteString(err.Error())
		buff.WriteString("; field: ")
		buff.WriteString(err.Field)
		buff.WriteString("; object: ")
		if err.Object != nil {
			buff.WriteString(reflect.TypeOf(err.Object).String())
		}
		buff.WriteString("\n")
	}

	return strings.TrimSpace(buff.String())
}

// CodeOf extracts the error code from err when it carries one,
// returning GeneralInternalServerError otherwise.
func CodeOf(err error) ErrorCode {
	switch e := err.(type) {
	case *ErrorDetails:
		return ErrorCode(e.Code)
	case *BaseError:
		if len(e.details) > 0 {
			return ErrorCode(e.details[0].Code)
		}
	}
	return GeneralInternalServerError
}
