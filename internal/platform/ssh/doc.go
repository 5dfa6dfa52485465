// Package ssh provides the SSH transport hostprep executes remote commands
// over.
//
// A Client holds one persistent connection to the target host and opens a
// fresh session for every command. It implements remote.Channel: the exit
// status of a command that ran is returned as a value, and errors are
// reserved for connection and session failures.
package ssh
