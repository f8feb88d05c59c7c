package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error, unreadable papers directory
	ExitDataError   = 3 // Lint found errors in records
)
