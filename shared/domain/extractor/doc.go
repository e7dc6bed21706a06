// Package extractor turns the XML documents a Maven repository publishes into
// typed records.
//
// Every extractor is an explicit state machine fed by one token loop (see
// walk). Extractors never perform I/O beyond reading the supplied stream, and
// each call builds fresh state, so nothing leaks between documents.
//
// Malformed documents return an error alongside whatever was recovered before
// the failure; callers decide whether the partial record is usable.
package extractor
