package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/medportal/medportal/internal/auth"
)

// ErrCorrupt marks persisted session data that cannot be decoded.
var ErrCorrupt = errors.New("session: corrupt principal data")

const envelopeVersion = 1

type envelope struct {
	Version   int              `json:"v"`
	Principal *principalRecord `json:"principal"`
}

type principalRecord struct {
	ID     string   `json:"id"`
	Email  string   `json:"email"`
	Name   string   `json:"name,omitempty"`
	Phone  string   `json:"phone,omitempty"`
	Roles  []string `json:"roles"`
	Method string   `json:"method,omitempty"`
}

// Encode serializes p into the versioned envelope stored by persisters.
func Encode(p auth.Principal) ([]byte, error) {
	return json.Marshal(envelope{
		Version: envelopeVersion,
		Principal: &principalRecord{
			ID:     p.ID,
			Email:  p.Email,
			Name:   p.Name,
			Phone:  p.Phone,
			Roles:  auth.RoleStrings(p.Roles),
			Method: p.Method,
		},
	})
}

// Decode parses an envelope. Every failure wraps ErrCorrupt. Stored roles go
// through auth.ParseRoles so a stale or tampered role string degrades to "no
// privileged role".
func Decode(raw []byte) (auth.Principal, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return auth.Principal{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version != envelopeVersion {
		return auth.Principal{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, env.Version)
	}
	if env.Principal == nil || env.Principal.ID == "" {
		return auth.Principal{}, fmt.Errorf("%w: missing principal id", ErrCorrupt)
	}
	rec := env.Principal
	return auth.Principal{
		ID:     rec.ID,
		Email:  rec.Email,
		Name:   rec.Name,
		Phone:  rec.Phone,
		Roles:  auth.ParseRoles(rec.Roles),
		Method: rec.Method,
	}, nil
}
