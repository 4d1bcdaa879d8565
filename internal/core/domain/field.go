package domain

import (
	"fmt"
	"sort"
)

// Field names a column of the user record.
type Field string

const (
	FieldID             Field = "id"
	FieldEmail          Field = "email"
	FieldHashedPassword Field = "hashed_password"
	FieldSessionID      Field = "session_id"
	FieldResetToken     Field = "reset_token"
)

var lookupFields = map[Field]struct{}{
	FieldID:         {},
	FieldEmail:      {},
	FieldSessionID:  {},
	FieldResetToken: {},
}

var mutableFields = map[Field]struct{}{
	FieldEmail:          {},
	FieldHashedPassword: {},
	FieldSessionID:      {},
	FieldResetToken:     {},
}

// Query is a conjunction of equality constraints over the lookup key set.
type Query map[Field]string

// By builds a single-constraint query.
func By(f Field, value string) Query {
	return Query{f: value}
}

// Validate rejects empty queries, unknown keys and empty values.
func (q Query) Validate() error {
	if len(q) == 0 {
		return fmt.Errorf("%w: query has no constraints", ErrInvalidField)
	}
	for f, v := range q {
		if _, ok := lookupFields[f]; !ok {
			return fmt.Errorf("%w: %q is not a lookup key", ErrInvalidField, f)
		}
		if v == "" {
			return fmt.Errorf("%w: empty value for %q", ErrInvalidInput, f)
		}
	}
	return nil
}

// Matches reports whether every constraint holds for u.
func (q Query) Matches(u *User) bool {
	for f, want := range q {
		got, ok := u.Value(f)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Fields returns the constrained fields in a stable order.
func (q Query) Fields() []Field {
	out := make([]Field, 0, len(q))
	for f := range q {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Changes is a partial update. A nil value clears a nullable field.
type Changes map[Field]*string

// Set records a new value for f.
func (c Changes) Set(f Field, v string) Changes {
	c[f] = &v
	return c
}

// Clear records that f must become null.
func (c Changes) Clear(f Field) Changes {
	c[f] = nil
	return c
}

// Validate enforces the update whitelist and the non-null columns.
func (c Changes) Validate() error {
	for f, v := range c {
		if _, ok := mutableFields[f]; !ok {
			return fmt.Errorf("%w: %q is not updatable", ErrInvalidField, f)
		}
		if (f == FieldEmail || f == FieldHashedPassword) && (v == nil || *v == "") {
			return fmt.Errorf("%w: %q cannot be empty", ErrInvalidInput, f)
		}
	}
	return nil
}

// Apply writes the changes onto u. Callers validate first.
func (c Changes) Apply(u *User) {
	for f, v := range c {
		switch f {
		case FieldEmail:
			u.Email = *v
		case FieldHashedPassword:
			u.HashedPassword = *v
		case FieldSessionID:
			u.SessionID = copyPtr(v)
		case FieldResetToken:
			u.ResetToken = copyPtr(v)
		}
	}
}

// Fields returns the changed fields in a stable order.
func (c Changes) Fields() []Field {
	out := make([]Field, 0, len(c))
	for f := range c {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func copyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
