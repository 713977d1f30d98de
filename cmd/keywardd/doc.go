// Command keywardd runs the key directory, backup, pairing relay and blob
// server consumed by the keyward client.
package main
