// Package conversation models chat conversations, the active session, and the
// contract for the device-local conversation archive.
package conversation
