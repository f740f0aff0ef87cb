// Package services wires the folding components of a process together.
//
// A Registry holds the shared pieces (syntax sources, language rules,
// metrics, the view-state store and the hidden-range bus) and builds
// controllers from them. A Workspace tracks open documents by id on top of
// a Registry and is what the HTTP service, the TUI and the CLI drive.
package services
