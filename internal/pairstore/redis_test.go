package pairstore

import (
	"path"
	"strings"
	"testing"
)

// Redis glob patterns follow the same *, ? and [] rules as path.Match, so
// it stands in for the server-side matching here.
func TestPairingKeyNeutralizesUserID(t *testing.T) {
	// A user id carrying the separator must not produce the same key as a
	// different (user, code) split.
	if pairingKey("alice:12", "3456") == pairingKey("alice", "12:3456") {
		t.Fatal("separator in user id collides across (user, code) splits")
	}

	// A user id carrying glob metacharacters must not widen its List scan
	// onto other users' records.
	pattern := pairingKey("evil*", "*")
	victim := pairingKey("evilx", "123456")
	if ok, err := path.Match(pattern, victim); err != nil || ok {
		t.Fatalf("scan pattern for %q matches %q (ok=%v err=%v)", "evil*", "evilx", ok, err)
	}

	// Only the trailing code wildcard may remain in the pattern.
	if got := strings.TrimSuffix(pattern, ":*"); strings.ContainsAny(got, `*?[]\`) {
		t.Fatalf("user portion of key %q still contains glob metacharacters", pattern)
	}
}
