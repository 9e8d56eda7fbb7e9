// Package services implements the core business logic: the ingestion
// pipeline, similarity retrieval, and streaming answer synthesis. Services
// depend only on domain types and driven ports, never on adapters.
package services
