// Package mailbox tracks which disposable addresses each client session
// owns and which one is currently active.
package mailbox

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Directory errors
var (
	// ErrNotOwned is returned when a session addresses a mailbox outside
	// its owned set. Adopting a foreign address silently would let
	// sessions read each other's mail, so the switch is rejected.
	ErrNotOwned = errors.New("address not owned by session")

	// ErrCreateDisabled is returned when address creation is disabled
	ErrCreateDisabled = errors.New("address creation is disabled")
)

type sessionState struct {
	owned   map[string]bool
	current string
}

// Directory is the in-memory registry of session-owned addresses. State is
// per session and intentionally not persisted: a lost session simply gets
// a fresh disposable address.
type Directory struct {
	mu            sync.RWMutex
	sessions      map[string]*sessionState
	domain        string
	allowCreation bool
}

// NewDirectory creates a Directory minting addresses under the given domain
func NewDirectory(domain string, allowCreation bool) *Directory {
	return &Directory{
		sessions:      make(map[string]*sessionState),
		domain:        domain,
		allowCreation: allowCreation,
	}
}

// Current returns the session's active address, if any. The current
// address is always a member of the owned set.
func (d *Directory) Current(session string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	state, ok := d.sessions[session]
	if !ok || state.current == "" {
		return "", false
	}
	return state.current, true
}

// Create registers an address for the session and makes it current. When
// creation from URLs is disabled this is a no-op the caller turns into a
// redirect, not an error response.
func (d *Directory) Create(session, address string) error {
	if !d.allowCreation {
		return ErrCreateDisabled
	}

	address = normalize(address)
	if address == "" {
		return errors.New("address cannot be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	state := d.sessions[session]
	if state == nil {
		state = &sessionState{owned: make(map[string]bool)}
		d.sessions[session] = state
	}
	state.owned[address] = true
	state.current = address
	return nil
}

// Random mints a new random address for the session and makes it current.
// Random creation is always available, only custom creation is gated.
func (d *Directory) Random(session string) string {
	address := strings.Split(uuid.NewString(), "-")[0] + "@" + d.domain

	d.mu.Lock()
	defer d.mu.Unlock()

	state := d.sessions[session]
	if state == nil {
		state = &sessionState{owned: make(map[string]bool)}
		d.sessions[session] = state
	}
	state.owned[address] = true
	state.current = address
	return address
}

// Switch makes an owned address current. Switching to an address the
// session does not own fails with ErrNotOwned.
func (d *Directory) Switch(session, address string) error {
	address = normalize(address)

	d.mu.Lock()
	defer d.mu.Unlock()

	state := d.sessions[session]
	if state == nil || !state.owned[address] {
		return ErrNotOwned
	}
	state.current = address
	return nil
}

// ListOwned returns the session's owned addresses
func (d *Directory) ListOwned(session string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	state := d.sessions[session]
	if state == nil {
		return nil
	}
	addresses := make([]string, 0, len(state.owned))
	for addr := range state.owned {
		addresses = append(addresses, addr)
	}
	return addresses
}

// Delete removes an address from the session's owned set. Removing the
// current address unsets it, which sends the client back to home.
func (d *Directory) Delete(session, address string) {
	address = normalize(address)

	d.mu.Lock()
	defer d.mu.Unlock()

	state := d.sessions[session]
	if state == nil {
		return
	}
	delete(state.owned, address)
	if state.current == address {
		state.current = ""
	}
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
