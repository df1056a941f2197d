// Package scraper fetches the pages the extraction reads.
//
// A Scraper issues GET requests with a fixed User-Agent and timeout, waits on
// a rate limiter before every request, and retries transient failures
// (network errors, 5xx and 429 responses) with exponential backoff. Pages are
// reduced to line-oriented text by the htmltext package, and Loader adapts a
// page into an item source for the extraction chain.
package scraper
