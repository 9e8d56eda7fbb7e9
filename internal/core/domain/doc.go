// Package domain contains the core business entities for corpusqa.
// These types have no dependencies on infrastructure and are shared
// between services, ports, and adapters.
package domain
