// Package pattern holds the text patterns used to pick the Minerva event out
// of scraped page text: the event marker, list markers, the date range and
// reward item lines.
package pattern
