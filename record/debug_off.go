//go:build !spookydebug

package record

const debugChecks = false
