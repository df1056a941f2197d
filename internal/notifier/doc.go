// Package notifier announces new Minerva rotations.
//
// A notifier is told about a record only when it describes a rotation that
// differs from the stored one. The Twitter notifier posts a short status with
// OAuth1 user credentials; the dry-run notifier prints the status instead.
package notifier
