package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// SessionID is 32 bytes from crypto/rand, presented on the wire as 64 hex
// characters. Ids carry no structure: nothing about the owning user, the
// issue time, or any sequence can be recovered from one.
type SessionID [32]byte

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	return hex.EncodeToString(s[:])
}

// ParseSessionID validates the wire form of a session id. It accepts only
// the exact 64-character lowercase hex encoding produced by NewSessionID.
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	if len(sessionID) != hex.EncodedLen(len(sid)) {
		return sid, errors.New("invalid session id size")
	}
	for i := 0; i < len(sessionID); i++ {
		c := sessionID[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return sid, errors.New("invalid session id encoding")
		}
	}
	raw, err := hex.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}

	copy(sid[:], raw)
	return sid, nil
}
