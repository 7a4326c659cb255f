package driver

import "fmt"

// ErrorSource is the subsystem an ErrorCode originates from.
type ErrorSource uint32

const (
	SourceNone ErrorSource = iota
	SourceLib
	SourceServer
	SourceSSL
)

// ErrorCode identifies a driver error. The high byte holds the source, the low
// bits hold a source specific code. Server codes are CQL protocol error codes.
type ErrorCode uint32

func makeCode(source ErrorSource, code uint32) ErrorCode {
	return ErrorCode(uint32(source)<<24 | code)
}

// ServerError returns the ErrorCode of a CQL protocol error code.
func ServerError(code int) ErrorCode {
	return makeCode(SourceServer, uint32(code))
}

const OK ErrorCode = 0

const (
	ErrLibBadParams                 = ErrorCode(uint32(SourceLib)<<24 | 1)
	ErrLibNoStreams                 = ErrorCode(uint32(SourceLib)<<24 | 2)
	ErrLibUnableToInit              = ErrorCode(uint32(SourceLib)<<24 | 3)
	ErrLibMessageEncode             = ErrorCode(uint32(SourceLib)<<24 | 4)
	ErrLibHostResolution            = ErrorCode(uint32(SourceLib)<<24 | 5)
	ErrLibUnexpectedResponse        = ErrorCode(uint32(SourceLib)<<24 | 6)
	ErrLibRequestQueueFull          = ErrorCode(uint32(SourceLib)<<24 | 7)
	ErrLibNoAvailableIOThread       = ErrorCode(uint32(SourceLib)<<24 | 8)
	ErrLibWriteError                = ErrorCode(uint32(SourceLib)<<24 | 9)
	ErrLibNoHostsAvailable          = ErrorCode(uint32(SourceLib)<<24 | 10)
	ErrLibIndexOutOfBounds          = ErrorCode(uint32(SourceLib)<<24 | 11)
	ErrLibInvalidItemCount          = ErrorCode(uint32(SourceLib)<<24 | 12)
	ErrLibInvalidValueType          = ErrorCode(uint32(SourceLib)<<24 | 13)
	ErrLibRequestTimedOut           = ErrorCode(uint32(SourceLib)<<24 | 14)
	ErrLibUnableToSetKeyspace       = ErrorCode(uint32(SourceLib)<<24 | 15)
	ErrLibCallbackAlreadySet        = ErrorCode(uint32(SourceLib)<<24 | 16)
	ErrLibInvalidStatementType      = ErrorCode(uint32(SourceLib)<<24 | 17)
	ErrLibNameDoesNotExist          = ErrorCode(uint32(SourceLib)<<24 | 18)
	ErrLibUnableToDetermineProtocol = ErrorCode(uint32(SourceLib)<<24 | 19)
	ErrLibNullValue                 = ErrorCode(uint32(SourceLib)<<24 | 20)
	ErrLibNotImplemented            = ErrorCode(uint32(SourceLib)<<24 | 21)
	ErrLibUnableToConnect           = ErrorCode(uint32(SourceLib)<<24 | 22)
	ErrLibUnableToClose             = ErrorCode(uint32(SourceLib)<<24 | 23)
	ErrLibNoPagingState             = ErrorCode(uint32(SourceLib)<<24 | 24)
	ErrLibParameterUnset            = ErrorCode(uint32(SourceLib)<<24 | 25)
	ErrLibInternalError             = ErrorCode(uint32(SourceLib)<<24 | 33)

	ErrSSLInvalidCert       = ErrorCode(uint32(SourceSSL)<<24 | 1)
	ErrSSLInvalidPrivateKey = ErrorCode(uint32(SourceSSL)<<24 | 2)
)

var libNames = map[ErrorCode]string{
	ErrLibBadParams:                 "lib_bad_params",
	ErrLibNoStreams:                 "lib_no_streams",
	ErrLibUnableToInit:              "lib_unable_to_init",
	ErrLibMessageEncode:             "lib_message_encode",
	ErrLibHostResolution:            "lib_host_resolution",
	ErrLibUnexpectedResponse:        "lib_unexpected_response",
	ErrLibRequestQueueFull:          "lib_request_queue_full",
	ErrLibNoAvailableIOThread:       "lib_no_available_io_thread",
	ErrLibWriteError:                "lib_write_error",
	ErrLibNoHostsAvailable:          "lib_no_hosts_available",
	ErrLibIndexOutOfBounds:          "lib_index_out_of_bounds",
	ErrLibInvalidItemCount:          "lib_invalid_item_count",
	ErrLibInvalidValueType:          "lib_invalid_value_type",
	ErrLibRequestTimedOut:           "lib_request_timed_out",
	ErrLibUnableToSetKeyspace:       "lib_unable_to_set_keyspace",
	ErrLibCallbackAlreadySet:        "lib_callback_already_set",
	ErrLibInvalidStatementType:      "lib_invalid_statement_type",
	ErrLibNameDoesNotExist:          "lib_name_does_not_exist",
	ErrLibUnableToDetermineProtocol: "lib_unable_to_determine_protocol",
	ErrLibNullValue:                 "lib_null_value",
	ErrLibNotImplemented:            "lib_not_implemented",
	ErrLibUnableToConnect:           "lib_unable_to_connect",
	ErrLibUnableToClose:             "lib_unable_to_close",
	ErrLibNoPagingState:             "lib_no_paging_state",
	ErrLibParameterUnset:            "lib_parameter_unset",
	ErrLibInternalError:             "lib_internal_error",
	ErrSSLInvalidCert:               "ssl_invalid_cert",
	ErrSSLInvalidPrivateKey:         "ssl_invalid_private_key",
}

var serverNames = map[uint32]string{
	0x0000: "server_server_error",
	0x000A: "server_protocol_error",
	0x0100: "server_bad_credentials",
	0x1000: "server_unavailable",
	0x1001: "server_overloaded",
	0x1002: "server_is_bootstrapping",
	0x1003: "server_truncate_error",
	0x1100: "server_write_timeout",
	0x1200: "server_read_timeout",
	0x1300: "server_read_failure",
	0x1400: "server_function_failure",
	0x1500: "server_write_failure",
	0x2000: "server_syntax_error",
	0x2100: "server_unauthorized",
	0x2200: "server_invalid_query",
	0x2300: "server_config_error",
	0x2400: "server_already_exists",
	0x2500: "server_unprepared",
}

// Source returns the subsystem the code originates from.
func (c ErrorCode) Source() ErrorSource {
	return ErrorSource(uint32(c) >> 24)
}

// Code returns the source specific part of the code.
func (c ErrorCode) Code() uint32 {
	return uint32(c) & 0xFFFFFF
}

func (c ErrorCode) String() string {
	if c == OK {
		return "ok"
	}
	if c.Source() == SourceServer {
		if name, ok := serverNames[c.Code()]; ok {
			return name
		}
		return fmt.Sprintf("server_error_0x%04x", c.Code())
	}
	if name, ok := libNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown_error_0x%08x", uint32(c))
}
