package modem

import "errors"

var (
	// ErrControlFailure means the DTR ioctl failed and the physical line
	// state is unknown.
	ErrControlFailure = errors.New("power line control failure")

	// ErrSendFailed means the command bytes could not be written.
	ErrSendFailed = errors.New("send failed")
)
