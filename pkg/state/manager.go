// Package state provides the single source of truth for named application
// state, with per-key observer notification and coarse snapshot/rollback.
//
// The Manager is deliberately not synchronized: it must only be mutated from
// the foreground goroutine that owns the UI loop. Background workers
// communicate exclusively through the runner's output queue, never by writing
// state directly. This single-writer discipline is part of the contract, not
// an omission.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/scriptdeck/scriptdeck/internal/logging"
	"github.com/scriptdeck/scriptdeck/pkg/bus"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

// Well-known state keys. Values are heterogeneous but fixed-per-key by
// convention.
const (
	KeyCurrentPage   = "current_page"
	KeyScriptRunning = "script_running"
	KeyTheme         = "theme"
	KeyFontSize      = "font_size"
	KeyWindowTitle   = "window_title"
	KeyStatus        = "status"
	KeyLastOutput    = "last_output"
	KeyScriptPath    = "script_path"
	KeyScriptName    = "script_name"
	KeyExportPath    = "export_path"
	KeyDeveloperMode = "developer_mode"
	KeySoundEnabled  = "sound_enabled"
	KeyNotifyEnabled = "notifications_enabled"
)

// Status values stored under KeyStatus.
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusPaused  = "paused"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Observer is a per-key change callback. It receives the new and the previous
// value. Observers run synchronously on the mutating goroutine.
type Observer func(value, oldValue any)

// ObserverHandle identifies one observer registration. It is returned by
// Subscribe and consumed by Unsubscribe; the zero value identifies nothing.
type ObserverHandle struct {
	key string
	seq uint64
}

type observerEntry struct {
	seq uint64
	fn  Observer
}

// Manager is the centralized key/value state store.
type Manager struct {
	state     map[string]any
	defaults  map[string]any
	previous  map[string]any
	observers map[string][]observerEntry
	seq       uint64
	bus       *bus.Bus
	logger    *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithInitial overrides default values at construction time, without
// triggering notifications.
func WithInitial(initial map[string]any) Option {
	return func(m *Manager) {
		for k, v := range initial {
			m.state[k] = v
		}
	}
}

// Defaults returns the hard-coded default state. Reset restores these values.
func Defaults() map[string]any {
	return map[string]any{
		KeyCurrentPage:   "About",
		KeyScriptRunning: false,
		KeyTheme:         "dark",
		KeyFontSize:      12,
		KeyWindowTitle:   "Script Runner",
		KeyStatus:        StatusIdle,
		KeyLastOutput:    nil,
		KeyScriptPath:    "",
		KeyScriptName:    "",
		KeyExportPath:    "",
		KeyDeveloperMode: false,
		KeySoundEnabled:  true,
		KeyNotifyEnabled: true,
	}
}

// New creates a Manager wired to the given event bus.
func New(eventBus *bus.Bus, opts ...Option) *Manager {
	m := &Manager{
		state:     Defaults(),
		defaults:  Defaults(),
		observers: make(map[string][]observerEntry),
		bus:       eventBus,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.previous = copyState(m.state)
	return m
}

func copyState(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Get returns the value stored under key, or def if the key is absent.
func (m *Manager) Get(key string, def any) any {
	if v, ok := m.state[key]; ok {
		return v
	}
	return def
}

// GetBool reads a boolean key, returning def on absence or type mismatch.
func (m *Manager) GetBool(key string, def bool) bool {
	if v, ok := m.state[key].(bool); ok {
		return v
	}
	return def
}

// GetString reads a string key, returning def on absence or type mismatch.
func (m *Manager) GetString(key string, def string) string {
	if v, ok := m.state[key].(string); ok {
		return v
	}
	return def
}

// GetAll returns a copy of the entire state.
func (m *Manager) GetAll() map[string]any {
	return copyState(m.state)
}

// Set writes value under key and notifies observers. Writing a value equal to
// the current one is a complete no-op: no observer runs and no event fires.
func (m *Manager) Set(key string, value any) {
	m.set(key, value, true)
}

// SetSilent writes without notifying observers or publishing events.
func (m *Manager) SetSilent(key string, value any) {
	m.set(key, value, false)
}

func (m *Manager) set(key string, value any, notify bool) {
	oldValue := m.state[key]
	if reflect.DeepEqual(oldValue, value) {
		return
	}

	m.logger.Debug("state change", "key", key, "value", value, "old", oldValue)
	m.state[key] = value

	if !notify {
		return
	}
	m.notifyObservers(key, value, oldValue)
	m.bus.Publish(domain.StateChanged{Key: key, Value: value, OldValue: oldValue})
}

// Update applies several key/value pairs as a batch. All changed values are
// written first; observers are then notified per changed key, and a single
// StateBatchUpdate event lists every changed key. Unchanged keys are excluded
// from all notifications. Keys are processed in sorted order so notification
// order is deterministic.
func (m *Manager) Update(updates map[string]any) {
	m.update(updates, true)
}

// UpdateSilent applies a batch without any notification.
func (m *Manager) UpdateSilent(updates map[string]any) {
	m.update(updates, false)
}

func (m *Manager) update(updates map[string]any, notify bool) {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changed := make([]string, 0, len(keys))
	oldValues := make(map[string]any, len(keys))
	for _, key := range keys {
		value := updates[key]
		oldValue := m.state[key]
		if reflect.DeepEqual(oldValue, value) {
			continue
		}
		oldValues[key] = oldValue
		m.state[key] = value
		changed = append(changed, key)
	}

	if !notify || len(changed) == 0 {
		return
	}

	for _, key := range changed {
		m.notifyObservers(key, m.state[key], oldValues[key])
	}

	batch := make(map[string]any, len(changed))
	for _, key := range changed {
		batch[key] = m.state[key]
	}
	m.bus.Publish(domain.StateBatchUpdate{Keys: changed, Updates: batch})
}

// Subscribe registers an observer for a key and returns the handle that
// removes exactly this registration. Every call adds a new observer, including
// repeated calls with the same function or method value.
func (m *Manager) Subscribe(key string, fn Observer) ObserverHandle {
	if fn == nil {
		return ObserverHandle{}
	}
	m.seq++
	m.observers[key] = append(m.observers[key], observerEntry{seq: m.seq, fn: fn})
	return ObserverHandle{key: key, seq: m.seq}
}

// SubscribeMultiple registers the same callback for several keys. The callback
// receives the key alongside the new value. The returned handles parallel
// keys.
func (m *Manager) SubscribeMultiple(keys []string, fn func(key string, value any)) []ObserverHandle {
	handles := make([]ObserverHandle, 0, len(keys))
	for _, key := range keys {
		k := key
		handles = append(handles, m.Subscribe(k, func(value, _ any) {
			fn(k, value)
		}))
	}
	return handles
}

// Unsubscribe removes the registration identified by h, reporting whether a
// removal occurred. Removing a handle twice, or a zero handle, is a no-op.
// Empty observer lists are dropped.
func (m *Manager) Unsubscribe(h ObserverHandle) bool {
	if h.seq == 0 {
		return false
	}
	entries := m.observers[h.key]
	for i, entry := range entries {
		if entry.seq == h.seq {
			m.observers[h.key] = append(entries[:i:i], entries[i+1:]...)
			if len(m.observers[h.key]) == 0 {
				delete(m.observers, h.key)
			}
			return true
		}
	}
	return false
}

// HasObservers reports whether a key has at least one observer.
func (m *Manager) HasObservers(key string) bool {
	return len(m.observers[key]) > 0
}

// ObserverCount returns the number of observers registered for a key.
func (m *Manager) ObserverCount(key string) int {
	return len(m.observers[key])
}

// ClearObservers removes observers for one key, or all observers when key is
// empty.
func (m *Manager) ClearObservers(key string) {
	if key == "" {
		m.observers = make(map[string][]observerEntry)
		return
	}
	delete(m.observers, key)
}

// notifyObservers runs every observer of key against a snapshot of the
// observer list. A panicking observer is logged and skipped; the fault never
// reaches the mutator.
func (m *Manager) notifyObservers(key string, value, oldValue any) {
	entries := m.observers[key]
	if len(entries) == 0 {
		return
	}
	snapshot := make([]observerEntry, len(entries))
	copy(snapshot, entries)

	for _, entry := range snapshot {
		m.notify(key, entry, value, oldValue)
	}
}

func (m *Manager) notify(key string, entry observerEntry, value, oldValue any) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("observer panicked", "key", key, "err", r)
		}
	}()
	entry.fn(value, oldValue)
}

// Reset restores the hard-coded defaults, carrying over the current values of
// preserveKeys. Every default key's observers are then notified, whether or
// not the value changed (a forced broadcast), and a StateReset event fires.
func (m *Manager) Reset(preserveKeys []string) {
	preserved := make(map[string]any, len(preserveKeys))
	for _, key := range preserveKeys {
		if v, ok := m.state[key]; ok {
			preserved[key] = v
		}
	}

	before := m.state
	m.state = copyState(m.defaults)
	for k, v := range preserved {
		m.state[k] = v
	}

	keys := make([]string, 0, len(m.state))
	for k := range m.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		m.notifyObservers(key, m.state[key], before[key])
	}

	m.bus.Publish(domain.StateReset{PreservedKeys: preserveKeys})
	m.logger.Info("state reset", "preserved", preserveKeys)
}

// Change is one entry of a Diff: the committed value and the current value.
type Change struct {
	Old any
	New any
}

// Commit records the current state as the snapshot Diff and Rollback compare
// against.
func (m *Manager) Commit() {
	m.previous = copyState(m.state)
}

// Diff returns the keys whose current value differs from the committed
// snapshot.
func (m *Manager) Diff() map[string]Change {
	diff := make(map[string]Change)
	seen := make(map[string]struct{}, len(m.state))

	for key, current := range m.state {
		seen[key] = struct{}{}
		prev := m.previous[key]
		if !reflect.DeepEqual(prev, current) {
			diff[key] = Change{Old: prev, New: current}
		}
	}
	for key, prev := range m.previous {
		if _, ok := seen[key]; ok {
			continue
		}
		diff[key] = Change{Old: prev, New: nil}
	}
	return diff
}

// Rollback restores the committed snapshot and force-notifies every key's
// observers with the true pre-rollback value as the old value.
func (m *Manager) Rollback() {
	before := m.state
	m.state = copyState(m.previous)

	keys := make([]string, 0, len(m.state))
	for k := range m.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		m.notifyObservers(key, m.state[key], before[key])
	}

	m.bus.Publish(domain.StateRollback{})
	m.logger.Info("state rolled back")
}

// SaveToFile serializes the entire state as JSON. The write is atomic: a temp
// file in the target directory is synced and renamed over the destination.
func (m *Manager) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure settings directory: %w", err)
	}

	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "tmp-settings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}

	m.logger.Info("settings saved", "path", path)
	return nil
}

// LoadFromFile merges a previously saved state file into the current state:
// loaded keys win on conflict, keys never saved keep their defaults. A missing
// file is not an error; the return value reports whether anything was loaded.
// Loading does not trigger notifications.
func (m *Manager) LoadFromFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Info("settings file not found, using defaults", "path", path)
			return false, nil
		}
		return false, fmt.Errorf("failed to read settings file: %w", err)
	}

	loaded := make(map[string]any)
	if err := json.Unmarshal(data, &loaded); err != nil {
		return false, fmt.Errorf("failed to parse settings file: %w", err)
	}

	for k, v := range loaded {
		m.state[k] = normalizeJSON(k, v, m.defaults)
	}

	m.logger.Info("settings loaded", "path", path, "keys", len(loaded))
	return true, nil
}

// normalizeJSON converts float64 values produced by encoding/json back to int
// when the default for the key is an int, so change-detection keeps working
// after a load round-trip.
func normalizeJSON(key string, v any, defaults map[string]any) any {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	if _, isInt := defaults[key].(int); isInt && f == float64(int(f)) {
		return int(f)
	}
	return v
}

// Decode maps the current state onto a typed struct using mapstructure tags.
// Useful for reading the settings surface as one typed value.
func (m *Manager) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(m.state); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}
	return nil
}
