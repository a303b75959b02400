package cgi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Error types for CGI module operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (host unreachable, reset, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the device refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeAuth indicates an authentication failure (HTTP 401)
	ErrTypeAuth
	// ErrTypeTransport indicates a non-200 reply to a load or set
	ErrTypeTransport
	// ErrTypeProtocol indicates the device reported a failure inside a 200 reply
	ErrTypeProtocol
	// ErrTypeDecode indicates a field value could not be decoded
	ErrTypeDecode
	// ErrTypeUnsupported indicates the operation is not offered by the module
	ErrTypeUnsupported
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// Stable messages reported by the module contract.
const (
	MsgModuleNotDefined = "Module is not defined"
	MsgUnknownError     = "Unknown error"
	MsgUnknownParse     = "Unknown parse error"
	MsgParsingError     = "Parsing error: "
	notDefinedMarker    = "is not defined"
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeDecode:
		return "Decode Error"
	case ErrTypeUnsupported:
		return "Unsupported Operation"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError represents an error that occurred during device communication
type DeviceError struct {
	Type           ErrorType           // Category of error
	Message        string              // Stable human-readable message
	StatusCode     int                 // HTTP status code (if applicable)
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Host           string              // Device address (for context)
	Retryable      bool                // Whether the error is retryable
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes an error and returns a more specific error type
func ClassifyNetworkError(err error, host string) *DeviceError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &DeviceError{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Host:           host,
			Retryable:      true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Host:           host,
			Retryable:      false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &DeviceError{
				Type:           ErrTypeConnectionRefused,
				Message:        "Device refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Host:           host,
				Retryable:      true,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Host:           host,
				Retryable:      true,
			}
		}
		if errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Host:           host,
				Retryable:      true,
			}
		}
	}

	// Recursively classify the error wrapped by net/http
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err, host)
	}

	return &DeviceError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Host:           host,
		Retryable:      true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewTransportError creates an error for a non-200 reply
func NewTransportError(statusCode int, message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeTransport,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewProtocolError creates an error for a failure reported inside a 200 reply
func NewProtocolError(message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeProtocol,
		Message:    message,
		StatusCode: http.StatusOK,
	}
}

// NewDecodeError wraps a codec error
func NewDecodeError(err error) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeDecode,
		Message: err.Error(),
		Err:     err,
	}
}

// NewUnsupportedError reports an operation the module does not offer
func NewUnsupportedError(module, op string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeUnsupported,
		Message: fmt.Sprintf("%s does not support %s", module, op),
	}
}

func asDeviceError(err error) (*DeviceError, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr, true
	}
	return nil, false
}

func isType(err error, types ...ErrorType) bool {
	devErr, ok := asDeviceError(err)
	if !ok {
		return false
	}
	for _, t := range types {
		if devErr.Type == t {
			return true
		}
	}
	return false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	return isType(err, ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS)
}

// IsAuthError checks if an error is an authentication error, including a 401 reply to a load or set
func IsAuthError(err error) bool {
	devErr, ok := asDeviceError(err)
	if !ok {
		return false
	}
	return devErr.Type == ErrTypeAuth || (devErr.Type == ErrTypeTransport && devErr.StatusCode == http.StatusUnauthorized)
}

// IsTransportError checks if an error is a non-200 reply
func IsTransportError(err error) bool { return isType(err, ErrTypeTransport) }

// IsProtocolError checks if an error was reported by the device inside a 200 reply
func IsProtocolError(err error) bool { return isType(err, ErrTypeProtocol) }

// IsDecodeError checks if an error is a codec failure
func IsDecodeError(err error) bool { return isType(err, ErrTypeDecode) }

// IsUnsupported checks if an error is an unsupported operation
func IsUnsupported(err error) bool { return isType(err, ErrTypeUnsupported) }

// IsNotDefined reports whether the panel does not offer the endpoint
func IsNotDefined(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeProtocol && devErr.Message == MsgModuleNotDefined
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if devErr, ok := asDeviceError(err); ok {
		return devErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The device did not respond in time.",
			"Troubleshooting:",
			"  • Check that the intercom is powered on",
			"  • Try increasing --timeout",
			"  • Firmware uploads and key imports take minutes on slow panels",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The device refused the connection.",
			"Troubleshooting:",
			"  • Verify the port number (default is 80)",
			"  • Check whether the panel only accepts HTTPS (--https)",
			"  • The web server may be restarting - try again in a minute",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the device hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of hostname",
			"  • Check your network DNS settings",
		}, "\n")

	case ErrTypeAuth:
		return strings.Join([]string{
			"Authentication failed.",
			"Troubleshooting:",
			"  • The factory credentials are admin:admin",
			"  • Check the credentials configured for this host",
			"  • Some modules require the admin account",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}

		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			hint = append(hint, "The device is not reachable on the network.",
				"Troubleshooting:",
				"  • Verify the device IP address is correct",
				"  • Ensure the device is powered on and connected",
				"  • Try pinging the device: ping "+devErr.Host)

		case NetworkErrorNetworkUnreachable:
			hint = append(hint, "Your computer cannot reach the device's network.",
				"Troubleshooting:",
				"  • Check VPN or routing to the intercom subnet",
				"  • Check your network adapter settings")

		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the device is powered on")
		}

		return strings.Join(hint, "\n")

	case ErrTypeTransport:
		if devErr.StatusCode == http.StatusUnauthorized {
			return GetTroubleshootingHint(NewAuthError(devErr.Message))
		}
		if devErr.StatusCode >= 500 {
			return strings.Join([]string{
				fmt.Sprintf("The device returned an error (HTTP %d).", devErr.StatusCode),
				"Troubleshooting:",
				"  • Try rebooting the device",
				"  • Check if a firmware update is available",
			}, "\n")
		}
		return fmt.Sprintf("The device returned HTTP error %d. Check the request parameters.", devErr.StatusCode)

	case ErrTypeProtocol:
		if devErr.Message == MsgModuleNotDefined {
			return "This endpoint does not exist on the panel's model or firmware."
		}
		return "The device rejected the request. Check the error message for details."

	case ErrTypeDecode:
		return "A value reported by the device could not be decoded. It may use an unsupported firmware layout."

	case ErrTypeUnsupported:
		return "This module accepts commands only and cannot be read or written."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Device refused connection"
	case ErrTypeDNS:
		return "Cannot resolve device hostname"
	case ErrTypeAuth:
		return "Authentication failed - check credentials"
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Device unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check routing"
		default:
			return "Network error - check connection"
		}
	default:
		return devErr.Message
	}
}
