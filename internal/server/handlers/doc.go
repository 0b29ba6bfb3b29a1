// Package handlers contains the HTTP handler modules for the statekeeper
// server: service state CRUD, health, and transition history. Handlers talk to
// the store through narrow interfaces so tests can substitute fakes.
package handlers
