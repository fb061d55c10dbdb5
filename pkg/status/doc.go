// Package status interprets target-native status documents. The
// mapping processor fetches a deposit's status reference and translates
// the document's term through the target's configured term-to-status
// table.
package status
