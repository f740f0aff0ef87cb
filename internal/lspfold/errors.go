package lspfold

import "errors"

var (
	// ErrProtocol indicates a malformed message from the language server.
	ErrProtocol = errors.New("language server protocol error")

	// ErrClosed indicates a request on a closed source.
	ErrClosed = errors.New("language server connection closed")

	// ErrNoCommand indicates a Start call without a server command.
	ErrNoCommand = errors.New("no language server command configured")
)
