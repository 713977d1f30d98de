package backup

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tyler-smith/go-bip39"

	"keyward/internal/domain"
	"keyward/internal/errs"
)

// StaticPassword is a PasswordSupplier seeded with a known passphrase, for
// non-interactive use (flags, tests). Prompt returns the same value.
type StaticPassword struct {
	mu       sync.Mutex
	password string
}

// NewStaticPassword returns a supplier that hands out password until
// MarkUsedAndClear is called.
func NewStaticPassword(password string) *StaticPassword {
	return &StaticPassword{password: password}
}

// Retrieve returns the remembered passphrase, if any.
func (s *StaticPassword) Retrieve() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.password, s.password != ""
}

// Prompt returns the remembered passphrase without interaction.
func (s *StaticPassword) Prompt(string) (string, bool) {
	return s.Retrieve()
}

// MarkUsedAndClear forgets the passphrase.
func (s *StaticPassword) MarkUsedAndClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = ""
}

// TerminalPassword prompts for a passphrase on an interactive stream and
// remembers the last answer until MarkUsedAndClear.
type TerminalPassword struct {
	in  *bufio.Reader
	out io.Writer

	mu   sync.Mutex
	last string
}

// NewTerminalPassword returns a supplier reading answers from in and
// writing prompts to out.
func NewTerminalPassword(in io.Reader, out io.Writer) *TerminalPassword {
	return &TerminalPassword{in: bufio.NewReader(in), out: out}
}

// Retrieve returns the last prompted passphrase, if still held.
func (t *TerminalPassword) Retrieve() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.last != ""
}

// Prompt writes message and reads one line as the passphrase.
func (t *TerminalPassword) Prompt(message string) (string, bool) {
	fmt.Fprintf(t.out, "%s: ", message)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	password := strings.TrimSpace(line)
	if password == "" {
		return "", false
	}
	t.mu.Lock()
	t.last = password
	t.mu.Unlock()
	return password, true
}

// MarkUsedAndClear forgets the remembered passphrase.
func (t *TerminalPassword) MarkUsedAndClear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = ""
}

// GenerateRecoveryPhrase returns a fresh 12-word BIP-39 mnemonic for use as
// a backup passphrase, easier to transcribe than raw random bytes.
func GenerateRecoveryPhrase() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, "read mnemonic entropy", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, "build mnemonic", err)
	}
	return mnemonic, nil
}

// ValidRecoveryPhrase reports whether phrase is a well-formed BIP-39
// mnemonic.
func ValidRecoveryPhrase(phrase string) bool {
	return bip39.IsMnemonicValid(phrase)
}

// Compile-time assertions that both suppliers implement the domain interface.
var (
	_ domain.PasswordSupplier = (*StaticPassword)(nil)
	_ domain.PasswordSupplier = (*TerminalPassword)(nil)
)
