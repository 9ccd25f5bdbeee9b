//go:build spookydebug

package record

// debugChecks enables the extra validation spookydb performs in debug
// builds: stale-slot assertions on _At accessors, and sorted-index and
// type-tag verification in the whole-buffer validator.
const debugChecks = true
