package ledger

import "errors"

var (
	// ErrReadOnly is returned by Submit when no signing key is configured
	ErrReadOnly = errors.New("ledger client is read-only")

	// ErrReverted is returned when a mined transaction failed
	ErrReverted = errors.New("transaction reverted")

	// ErrDropped is returned when another transaction from the account took the nonce
	ErrDropped = errors.New("transaction dropped")

	// ErrUnknownContract is returned for a contract role without an ABI
	ErrUnknownContract = errors.New("unknown contract role")

	// ErrUnsupportedArg is returned when an argument cannot be encoded
	ErrUnsupportedArg = errors.New("unsupported argument type")
)
