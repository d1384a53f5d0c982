package rpc

import "fmt"

// Protocol error codes, following the JSON-RPC 2.0 taxonomy.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// Error is the protocol-level error object. Internal fault details are
// never carried beyond the generic message.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s (%d)", err.Message, err.Code)
}

var (
	ErrParseError     = &Error{Code: CodeParseError, Message: "Parse error"}
	ErrInvalidRequest = &Error{Code: CodeInvalidRequest, Message: "Invalid request"}
	ErrMethodNotFound = &Error{Code: CodeMethodNotFound, Message: "Method not found"}
	ErrInvalidParams  = &Error{Code: CodeInvalidParams, Message: "Invalid parameters"}
	ErrInternal       = &Error{Code: CodeInternal, Message: "Internal error"}
)

// BindError marks a params payload that does not fit the method's
// parameter shape.
type BindError struct {
	Cause error
}

func (err BindError) Error() string {
	return fmt.Sprintf("failed to bind params: %v", err.Cause)
}

func (err BindError) Unwrap() error {
	return err.Cause
}
