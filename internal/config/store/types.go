package store

// TCPListener describes a TCP port the daemon accepts trigger strings on.
type TCPListener struct {
	Port    int    `json:"port"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// TCPCommand is a named trigger string recognised on any listening port.
// Trigger matching is case-insensitive exact match.
type TCPCommand struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Trigger     string `json:"trigger"`
	Description string `json:"description,omitempty"`
}

// Automator describes a remote macro-execution endpoint.
type Automator struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	APIKey  string `json:"api_key,omitempty"`
	Enabled bool   `json:"enabled"`
}

// CommandMapping binds one TCP command to one executable item on one
// Automator. ItemType may be empty in configurations written by older
// releases; callers infer it from the cached catalog in that case.
type CommandMapping struct {
	TCPCommandID   string `json:"tcp_command_id"`
	AutomatorID    string `json:"automator_id"`
	TargetItemID   string `json:"target_item_id"`
	TargetItemName string `json:"target_item_name,omitempty"`
	ItemType       string `json:"item_type,omitempty"`
}

// Document is the full configuration document exchanged with the UI
// collaborator (export/import and the /api/config surface).
type Document struct {
	TCPListeners    []TCPListener    `json:"tcp_listeners"`
	TCPCommands     []TCPCommand     `json:"tcp_commands"`
	Automators      []Automator      `json:"automators"`
	CommandMappings []CommandMapping `json:"command_mappings"`
	WebPort         int              `json:"web_port,omitempty"`
	Theme           string           `json:"theme,omitempty"`
}
