// Package errors provides classified errors for statekeeper.
//
// Every error carries a category (what subsystem or failure class it belongs
// to), a severity (how bad it is), and a retry strategy (whether the caller
// may usefully try again). Adapters translate classified errors into HTTP
// status codes and CLI exit codes so presentation decisions live in one place.
package errors
