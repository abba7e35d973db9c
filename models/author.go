package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthorRef is a post's postedBy value. The API sends it either as a bare id
// or as an embedded user; both decode into this one shape.
type AuthorRef struct {
	ID   primitive.ObjectID
	User *UserSummary
}

// Embedded reports whether the author is already resolved.
func (a AuthorRef) Embedded() bool {
	return a.User != nil && !a.User.ID.IsZero()
}

func (a AuthorRef) IsZero() bool {
	return a.ID.IsZero() && a.User == nil
}

func (a AuthorRef) MarshalJSON() ([]byte, error) {
	if a.User != nil {
		return json.Marshal(a.User)
	}
	if a.ID.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(a.ID.Hex())
}

func (a *AuthorRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = AuthorRef{}

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '"':
		var hex string
		if err := json.Unmarshal(data, &hex); err != nil {
			return err
		}
		if hex == "" {
			return nil
		}
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return fmt.Errorf("postedBy: %w", err)
		}
		a.ID = id
		return nil
	case data[0] == '{':
		var u UserSummary
		if err := json.Unmarshal(data, &u); err != nil {
			return fmt.Errorf("postedBy: %w", err)
		}
		a.ID = u.ID
		a.User = &u
		return nil
	default:
		return fmt.Errorf("postedBy: unexpected JSON %s", data)
	}
}
