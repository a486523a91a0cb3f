package chain

import "errors"

var (
	// ErrWalletNotConnected is returned when no owner address is supplied.
	ErrWalletNotConnected = errors.New("wallet not connected")
	// ErrInvalidAddress is returned for a malformed owner address.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrNotConfigured is returned when the contract has no next deposit amount set.
	ErrNotConfigured = errors.New("deposit amount not configured, ask the administrator to configure the deposit sequence")
	// ErrInsufficientBalance is returned when the owner holds less than the next deposit amount.
	ErrInsufficientBalance = errors.New("insufficient token balance")
	// ErrSubmissionInFlight is returned while another relay from the same sender is running.
	ErrSubmissionInFlight = errors.New("a submission from this sender is already in flight")
	// ErrInvalidTransaction is returned when a relayed transaction cannot be decoded.
	ErrInvalidTransaction = errors.New("invalid raw transaction")
	// ErrUnexpectedTarget is returned when a relayed transaction targets neither the campaign nor the token.
	ErrUnexpectedTarget = errors.New("transaction does not target the campaign or its token")
)
