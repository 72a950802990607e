// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package relation

import (
	"github.com/juju/collections/set"
)

// Transaction describes how one settings record evolved into another.
type Transaction struct {
	// Added holds keys present in the new record only.
	Added set.Strings

	// Changed holds keys present in both records with differing values.
	Changed set.Strings

	// Deleted holds keys present in the old record only.
	Deleted set.Strings
}

// DiffSettings compares two records and returns the transaction between
// them. Either record may be nil.
func DiffSettings(old, new Settings) Transaction {
	t := Transaction{
		Added:   set.NewStrings(),
		Changed: set.NewStrings(),
		Deleted: set.NewStrings(),
	}
	for key, newValue := range new {
		oldValue, ok := old[key]
		if !ok {
			t.Added.Add(key)
		} else if oldValue != newValue {
			t.Changed.Add(key)
		}
	}
	for key := range old {
		if _, ok := new[key]; !ok {
			t.Deleted.Add(key)
		}
	}
	return t
}

// IsEmpty reports whether the records were identical.
func (t Transaction) IsEmpty() bool {
	return t.Added.IsEmpty() && t.Changed.IsEmpty() && t.Deleted.IsEmpty()
}

// Touched reports whether any of the given keys was added, changed or
// deleted by the transaction.
func (t Transaction) Touched(keys ...string) bool {
	for _, key := range keys {
		if t.Added.Contains(key) || t.Changed.Contains(key) || t.Deleted.Contains(key) {
			return true
		}
	}
	return false
}
