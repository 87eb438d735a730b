// Package diag defines the integrity issue taxonomy and the message model
// shared by checkers, the .bib reader, the orchestrator and renderers.
//
// # Taxonomy
//
// Code is a closed enumeration. Each member carries a canonical title, a
// default Severity and an optional FixKind, all stored in one table
// (codes.go). Consumers match on Code values, never on text. IDs are derived
// from numeric ranges:
//
//   - FMT: value present but violates a grammar (pages, ISBN format, URL).
//   - SEM: value well-formed but wrong in context (checksums, mode rules).
//   - KEY: citation key presence, legality, deviation and duplication.
//   - XRF: cross-record problems such as unresolved links or shared DOIs.
//   - SYN: .bib syntax problems reported by the reader.
//   - IO / OBS: load failures and observability output.
//
// # Messages
//
// Message is immutable: code, owning entry, offending field and an
// optional detail. Localized or decorated text is a presentation concern
// handled by internal/diagfmt.
//
// Bag and Reporter collect messages without coupling producers to storage.
package diag
