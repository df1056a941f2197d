// Package extract turns scraped Minerva page text into an event record.
//
// Every stage is a pure function over in-memory text: Locate finds the event
// marker line, Location and DateWindow read the fields that follow it,
// Segments and SelectSegment isolate the text that belongs to one list
// number, and Items pulls the reward lines out of a segment. Chain runs the
// item stages over an ordered set of sources and stops at the first one that
// yields anything. Engine wires the stages together and builds the record.
//
// Source pages reuse list numbers across unrelated rotations, so items are
// only ever read from inside a segment bounded by list markers.
package extract
