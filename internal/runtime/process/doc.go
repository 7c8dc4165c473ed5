// Package process launches supervised commands as local OS processes.
//
// On POSIX platforms each command runs in its own process group, so
// termination signals reach every descendant the command spawned. On Windows
// there is no kernel-enforced group signalling: the graceful phase is skipped
// entirely and only the top-level process is terminated, which may leave
// grandchildren running. Callers can query Runtime.GroupSignals to decide how
// to drive shutdown.
package process
