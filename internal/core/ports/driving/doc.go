// Package driving provides interfaces for application entry points (primary/inbound ports).
// The CLI and HTTP adapters depend on these, never on service implementations directly.
package driving
