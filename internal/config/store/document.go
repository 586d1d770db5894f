package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ListListeners returns all configured TCP listeners in document order.
func (s *Store) ListListeners(ctx context.Context) ([]TCPListener, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT port, name, enabled FROM tcp_listeners ORDER BY position, port
	`)
	if err != nil {
		return nil, fmt.Errorf("config: list listeners: %w", err)
	}
	defer rows.Close()

	var result []TCPListener
	for rows.Next() {
		var l TCPListener
		var enabled int
		if err := rows.Scan(&l.Port, &l.Name, &enabled); err != nil {
			return nil, fmt.Errorf("config: scan listener row: %w", err)
		}
		l.Enabled = enabled != 0
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("config: iterate listener rows: %w", err)
	}
	return result, nil
}

// ReplaceListeners overwrites the listener list with the provided entries,
// preserving their order.
func (s *Store) ReplaceListeners(ctx context.Context, listeners []TCPListener) error {
	if s.readOnly {
		return fmt.Errorf("config: replace listeners: store opened read-only")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tcp_listeners`); err != nil {
			return fmt.Errorf("config: clear listeners: %w", err)
		}
		for i, l := range listeners {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO tcp_listeners (port, name, enabled, position, updated_at)
				VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			`, l.Port, l.Name, boolToInt(l.Enabled), i); err != nil {
				return fmt.Errorf("config: insert listener %d: %w", l.Port, err)
			}
		}
		return nil
	})
}

// ListCommands returns all configured TCP commands in document order.
func (s *Store) ListCommands(ctx context.Context) ([]TCPCommand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, "trigger", description FROM tcp_commands ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("config: list commands: %w", err)
	}
	defer rows.Close()

	var result []TCPCommand
	for rows.Next() {
		var c TCPCommand
		if err := rows.Scan(&c.ID, &c.Name, &c.Trigger, &c.Description); err != nil {
			return nil, fmt.Errorf("config: scan command row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("config: iterate command rows: %w", err)
	}
	return result, nil
}

// ReplaceCommands overwrites the command list with the provided entries.
func (s *Store) ReplaceCommands(ctx context.Context, commands []TCPCommand) error {
	if s.readOnly {
		return fmt.Errorf("config: replace commands: store opened read-only")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tcp_commands`); err != nil {
			return fmt.Errorf("config: clear commands: %w", err)
		}
		for i, c := range commands {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO tcp_commands (id, name, "trigger", description, position, updated_at)
				VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			`, c.ID, c.Name, c.Trigger, c.Description, i); err != nil {
				return fmt.Errorf("config: insert command %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// ListAutomators returns all configured Automator instances in document order.
func (s *Store) ListAutomators(ctx context.Context) ([]Automator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, api_key, enabled FROM automators ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("config: list automators: %w", err)
	}
	defer rows.Close()

	var result []Automator
	for rows.Next() {
		var a Automator
		var enabled int
		if err := rows.Scan(&a.ID, &a.Name, &a.URL, &a.APIKey, &enabled); err != nil {
			return nil, fmt.Errorf("config: scan automator row: %w", err)
		}
		a.Enabled = enabled != 0
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("config: iterate automator rows: %w", err)
	}
	return result, nil
}

// GetAutomator returns a single Automator by id.
func (s *Store) GetAutomator(ctx context.Context, id string) (Automator, error) {
	var a Automator
	var enabled int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, url, api_key, enabled FROM automators WHERE id = ?
	`, id).Scan(&a.ID, &a.Name, &a.URL, &a.APIKey, &enabled)
	if err == sql.ErrNoRows {
		return Automator{}, NotFoundError{Entity: "automator", Key: id}
	}
	if err != nil {
		return Automator{}, fmt.Errorf("config: get automator %s: %w", id, err)
	}
	a.Enabled = enabled != 0
	return a, nil
}

// ReplaceAutomators overwrites the Automator list with the provided entries.
func (s *Store) ReplaceAutomators(ctx context.Context, automators []Automator) error {
	if s.readOnly {
		return fmt.Errorf("config: replace automators: store opened read-only")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM automators`); err != nil {
			return fmt.Errorf("config: clear automators: %w", err)
		}
		for i, a := range automators {
			if err := insertAutomator(ctx, tx, a, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddAutomator appends a new Automator. It fails when the id already exists.
func (s *Store) AddAutomator(ctx context.Context, a Automator) error {
	if s.readOnly {
		return fmt.Errorf("config: add automator: store opened read-only")
	}
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("config: add automator: id is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM automators WHERE id = ?`, a.ID).Scan(&exists)
		if err == nil {
			return fmt.Errorf("config: automator id %s already exists", a.ID)
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("config: check automator %s: %w", a.ID, err)
		}

		var next sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT MAX(position) + 1 FROM automators`).Scan(&next); err != nil {
			return fmt.Errorf("config: next automator position: %w", err)
		}
		return insertAutomator(ctx, tx, a, int(next.Int64))
	})
}

// UpdateAutomator replaces the stored entry for a.ID, preserving its position.
func (s *Store) UpdateAutomator(ctx context.Context, a Automator) error {
	if s.readOnly {
		return fmt.Errorf("config: update automator: store opened read-only")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE automators SET name = ?, url = ?, api_key = ?, enabled = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, a.Name, a.URL, a.APIKey, boolToInt(a.Enabled), a.ID)
	if err != nil {
		return fmt.Errorf("config: update automator %s: %w", a.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("config: update automator %s: %w", a.ID, err)
	}
	if affected == 0 {
		return NotFoundError{Entity: "automator", Key: a.ID}
	}
	return nil
}

// DeleteAutomator removes an Automator and optionally its command mappings.
// The cached catalog for the instance is always dropped. Returns the number
// of mappings deleted.
func (s *Store) DeleteAutomator(ctx context.Context, id string, deleteMappings bool) (int, error) {
	if s.readOnly {
		return 0, fmt.Errorf("config: delete automator: store opened read-only")
	}
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM automators WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("config: delete automator %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("config: delete automator %s: %w", id, err)
		}
		if affected == 0 {
			return NotFoundError{Entity: "automator", Key: id}
		}

		if deleteMappings {
			res, err := tx.ExecContext(ctx, `DELETE FROM command_mappings WHERE automator_id = ?`, id)
			if err != nil {
				return fmt.Errorf("config: delete mappings for %s: %w", id, err)
			}
			removed, _ = res.RowsAffected()
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM catalogs WHERE automator_id = ?`, id); err != nil {
			return fmt.Errorf("config: delete catalog for %s: %w", id, err)
		}
		return nil
	})
	return int(removed), err
}

// ListMappings returns all command mappings in document order.
func (s *Store) ListMappings(ctx context.Context) ([]CommandMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tcp_command_id, automator_id, target_item_id, target_item_name, item_type
		FROM command_mappings ORDER BY position, tcp_command_id
	`)
	if err != nil {
		return nil, fmt.Errorf("config: list mappings: %w", err)
	}
	defer rows.Close()

	var result []CommandMapping
	for rows.Next() {
		var m CommandMapping
		if err := rows.Scan(&m.TCPCommandID, &m.AutomatorID, &m.TargetItemID, &m.TargetItemName, &m.ItemType); err != nil {
			return nil, fmt.Errorf("config: scan mapping row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("config: iterate mapping rows: %w", err)
	}
	return result, nil
}

// MappingsForAutomator returns the mappings that reference the given instance.
func (s *Store) MappingsForAutomator(ctx context.Context, automatorID string) ([]CommandMapping, error) {
	mappings, err := s.ListMappings(ctx)
	if err != nil {
		return nil, err
	}
	var result []CommandMapping
	for _, m := range mappings {
		if m.AutomatorID == automatorID {
			result = append(result, m)
		}
	}
	return result, nil
}

// ReplaceMappings overwrites the mapping list with the provided entries.
// Later duplicates of the same tcp_command_id are dropped; at most one
// mapping per command survives.
func (s *Store) ReplaceMappings(ctx context.Context, mappings []CommandMapping) error {
	if s.readOnly {
		return fmt.Errorf("config: replace mappings: store opened read-only")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM command_mappings`); err != nil {
			return fmt.Errorf("config: clear mappings: %w", err)
		}
		seen := make(map[string]struct{}, len(mappings))
		pos := 0
		for _, m := range mappings {
			if _, dup := seen[m.TCPCommandID]; dup {
				continue
			}
			seen[m.TCPCommandID] = struct{}{}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO command_mappings (tcp_command_id, automator_id, target_item_id, target_item_name, item_type, position, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			`, m.TCPCommandID, m.AutomatorID, m.TargetItemID, m.TargetItemName, m.ItemType, pos); err != nil {
				return fmt.Errorf("config: insert mapping %s: %w", m.TCPCommandID, err)
			}
			pos++
		}
		return nil
	})
}

// LoadDocument assembles the full configuration document.
func (s *Store) LoadDocument(ctx context.Context) (Document, error) {
	var doc Document
	var err error

	if doc.TCPListeners, err = s.ListListeners(ctx); err != nil {
		return doc, err
	}
	if doc.TCPCommands, err = s.ListCommands(ctx); err != nil {
		return doc, err
	}
	if doc.Automators, err = s.ListAutomators(ctx); err != nil {
		return doc, err
	}
	if doc.CommandMappings, err = s.ListMappings(ctx); err != nil {
		return doc, err
	}

	settings, err := s.LoadSettings(ctx, SettingWebPort, SettingTheme)
	if err != nil {
		return doc, err
	}
	doc.WebPort = parsePort(settings[SettingWebPort])
	doc.Theme = settings[SettingTheme]

	return doc, nil
}

// ImportDocument replaces every configuration section present in doc.
// Nil slices leave the corresponding section untouched.
func (s *Store) ImportDocument(ctx context.Context, doc Document) error {
	if doc.TCPListeners != nil {
		if err := s.ReplaceListeners(ctx, doc.TCPListeners); err != nil {
			return err
		}
	}
	if doc.TCPCommands != nil {
		if err := s.ReplaceCommands(ctx, doc.TCPCommands); err != nil {
			return err
		}
	}
	if doc.Automators != nil {
		if err := s.ReplaceAutomators(ctx, doc.Automators); err != nil {
			return err
		}
	}
	if doc.CommandMappings != nil {
		if err := s.ReplaceMappings(ctx, doc.CommandMappings); err != nil {
			return err
		}
	}

	settings := make(map[string]string)
	if doc.WebPort > 0 {
		settings[SettingWebPort] = fmt.Sprintf("%d", doc.WebPort)
	}
	if doc.Theme != "" {
		settings[SettingTheme] = doc.Theme
	}
	if len(settings) > 0 {
		if err := s.SaveSettings(ctx, settings); err != nil {
			return err
		}
	}
	return nil
}

func insertAutomator(ctx context.Context, tx *sql.Tx, a Automator, position int) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO automators (id, name, url, api_key, enabled, position, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, a.ID, a.Name, a.URL, a.APIKey, boolToInt(a.Enabled), position); err != nil {
		return fmt.Errorf("config: insert automator %s: %w", a.ID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
