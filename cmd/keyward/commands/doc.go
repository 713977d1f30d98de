// Package commands defines the keyward CLI: identity setup, session and
// message operations, device pairing and attachment handling against a
// keywardd server.
package commands
