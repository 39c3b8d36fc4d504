package instr

import "github.com/ansel1/merry"

// Error classes for the command binding layer.  Classify with merry.Is;
// instances carry call-site context appended with merry.
var (
	// ErrInvalidValue is generated when a value is rejected by a property's
	// domain before anything is sent to the device
	ErrInvalidValue = merry.New("value outside allowed domain")

	// ErrReadOnly is generated when Set is called on a property with no
	// write command
	ErrReadOnly = merry.New("property is read only")

	// ErrWriteOnly is generated when Get is called on a property with no
	// query command
	ErrWriteOnly = merry.New("property is write only")

	// ErrUnknownProperty is generated when a property is not in the
	// instrument's command table
	ErrUnknownProperty = merry.New("property not in command table")

	// ErrCommunication is generated when the transport times out or
	// disconnects.  The core never retries; retry policy belongs to the
	// caller or the transport.
	ErrCommunication = merry.New("communication failure")

	// ErrReplyFormat is generated when a device reply cannot be parsed
	// as the property declares
	ErrReplyFormat = merry.New("reply could not be parsed")
)
