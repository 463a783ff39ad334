package errors

import (
	"fmt"
)

// KeyNotFoundError occurs when a Cache does not hold an entry for a key
type KeyNotFoundError struct{ Key string }

// Error returns a textual representation of this KeyNotFoundError
func (e KeyNotFoundError) Error() string {
	return fmt.Sprintf("Key %s does not exist in cache", e.Key)
}

// DuplicateEntryError occurs when a Row would contain two entries with the same name
type DuplicateEntryError struct{ Name string }

// Error returns a textual representation of this DuplicateEntryError
func (e DuplicateEntryError) Error() string {
	return fmt.Sprintf("Entry %s is defined more than once in row", e.Name)
}

// EntryNotFoundError occurs when a Row does not contain a requested entry
type EntryNotFoundError struct{ Name string }

// Error returns a textual representation of this EntryNotFoundError
func (e EntryNotFoundError) Error() string {
	return fmt.Sprintf("Entry %s does not exist in row", e.Name)
}

// InvalidConfigError occurs when a component is constructed with an unusable parameter
type InvalidConfigError struct {
	Param  string
	Value  interface{}
	Reason string
}

// Error returns a textual representation of this InvalidConfigError
func (e InvalidConfigError) Error() string {
	return fmt.Sprintf("Invalid value %v for %s: %s", e.Value, e.Param, e.Reason)
}

// PipeError occurs when a Transformer or Loader fails while processing Rows
type PipeError struct {
	Index int    // position of the failing pipe within its pipeline
	Pipe  string // type name of the failing pipe
	Cause error
}

// Error returns a textual representation of this PipeError
func (e PipeError) Error() string {
	return fmt.Sprintf("Pipe %d (%s) failed: %v", e.Index, e.Pipe, e.Cause)
}

// Unwrap returns the underlying cause of this PipeError
func (e PipeError) Unwrap() error {
	return e.Cause
}

// MemoryLimitExceededError occurs when an in-memory operation crosses its configured memory ceiling
type MemoryLimitExceededError struct {
	Used    uint64
	Ceiling uint64
}

// Error returns a textual representation of this MemoryLimitExceededError
func (e MemoryLimitExceededError) Error() string {
	return fmt.Sprintf("Memory usage %d exceeds ceiling %d", e.Used, e.Ceiling)
}

// CorruptEntryError occurs when a cached value cannot be decoded
type CorruptEntryError struct {
	Key   string
	Cause error
}

// Error returns a textual representation of this CorruptEntryError
func (e CorruptEntryError) Error() string {
	return fmt.Sprintf("Cache entry %s could not be decoded: %v", e.Key, e.Cause)
}

// Unwrap returns the underlying cause of this CorruptEntryError
func (e CorruptEntryError) Unwrap() error {
	return e.Cause
}

// KeyCollisionError occurs when a Cache stores entries under a hash of their
// key and another key already occupies that slot
type KeyCollisionError struct {
	Key      string
	Occupant string
}

// Error returns a textual representation of this KeyCollisionError
func (e KeyCollisionError) Error() string {
	return fmt.Sprintf("Key %s collides with cached key %s", e.Key, e.Occupant)
}
