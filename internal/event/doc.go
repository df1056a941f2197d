// Package event defines the Minerva event record written for the display
// front-end and the change detection between two consecutive records.
//
// A Record is built once per scrape cycle. Its JSON field names are the
// contract consumed by the front-end and must not change. Each record has a
// deterministic SHA1-based rotation key derived from the event line, list
// number and start of the validity window, so runs can tell a new rotation
// from a re-scrape of the current one.
package event
