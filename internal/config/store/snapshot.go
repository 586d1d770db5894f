package store

import (
	"context"
	"strings"
)

// Snapshot is an immutable view of the routing configuration. The daemon
// rebuilds it after every configuration write and swaps it in atomically;
// readers never observe a half-updated document.
type Snapshot struct {
	Version    uint64
	Listeners  []TCPListener
	Commands   []TCPCommand
	Automators []Automator
	Mappings   []CommandMapping
}

// LoadSnapshot reads the current configuration into a fresh Snapshot.
// The version counter increases monotonically per store handle.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	listeners, err := s.ListListeners(ctx)
	if err != nil {
		return nil, err
	}
	commands, err := s.ListCommands(ctx)
	if err != nil {
		return nil, err
	}
	automators, err := s.ListAutomators(ctx)
	if err != nil {
		return nil, err
	}
	mappings, err := s.ListMappings(ctx)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Version:    s.snapshotSeq.Add(1),
		Listeners:  listeners,
		Commands:   commands,
		Automators: automators,
		Mappings:   mappings,
	}, nil
}

// FindCommand returns the first command whose trigger matches the given
// string case-insensitively. Document order decides between duplicates.
func (s *Snapshot) FindCommand(trigger string) (TCPCommand, bool) {
	for _, c := range s.Commands {
		if strings.EqualFold(c.Trigger, trigger) {
			return c, true
		}
	}
	return TCPCommand{}, false
}

// MappingFor returns the first mapping bound to the given command id.
func (s *Snapshot) MappingFor(commandID string) (CommandMapping, bool) {
	for _, m := range s.Mappings {
		if m.TCPCommandID == commandID {
			return m, true
		}
	}
	return CommandMapping{}, false
}

// AutomatorByID returns the Automator with the given id.
func (s *Snapshot) AutomatorByID(id string) (Automator, bool) {
	for _, a := range s.Automators {
		if a.ID == id {
			return a, true
		}
	}
	return Automator{}, false
}

// EnabledAutomators returns the enabled instances in document order.
func (s *Snapshot) EnabledAutomators() []Automator {
	var result []Automator
	for _, a := range s.Automators {
		if a.Enabled {
			result = append(result, a)
		}
	}
	return result
}

// DuplicateTriggers reports trigger strings shared by more than one command
// (case-insensitive). Duplicates are legal (first match in document order
// wins) but worth a configuration warning since later commands are shadowed.
func (s *Snapshot) DuplicateTriggers() []string {
	seen := make(map[string]int, len(s.Commands))
	var dups []string
	for _, c := range s.Commands {
		key := strings.ToLower(c.Trigger)
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, c.Trigger)
		}
	}
	return dups
}
