package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errEmptyUserPayload = errors.New("empty user payload")

// EncodeUser serializes a record for the user key.
func EncodeUser(u UserRecord) (string, error) {
	if !u.Valid() {
		return "", errors.New("user record has no identity")
	}
	if u.Permissions == nil {
		u.Permissions = []string{}
	}
	data, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeUser parses the user key. A payload without id and username is
// rejected, the same as undecodable JSON.
func DecodeUser(raw string) (UserRecord, error) {
	if raw == "" {
		return UserRecord{}, errEmptyUserPayload
	}

	var u UserRecord
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return UserRecord{}, fmt.Errorf("decode user: %w", err)
	}
	if !u.Valid() {
		return UserRecord{}, errors.New("decode user: missing identity")
	}
	if u.Permissions == nil {
		u.Permissions = []string{}
	}
	return u, nil
}
