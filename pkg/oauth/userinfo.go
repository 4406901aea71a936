package oauth

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"
)

// UserInfo is the normalized identity extracted from a provider's user
// info document. Fields the provider did not send are empty.
type UserInfo struct {
	UserID   string
	UserName string
	Email    string

	// RawJSON is the document exactly as the provider returned it.
	RawJSON string
}

// userInfoKeys lists, per field, the JSON keys tried in order.
type userInfoKeys struct {
	userID   []string
	userName []string
	email    []string
}

// ParseUserJSON extracts the user id, name and email. An empty or
// malformed payload fails with ErrInvalidUserInfo; missing fields do not.
func (p *provider) ParseUserJSON(data []byte) (*UserInfo, error) {
	return parseUserJSON(data, p.keys)
}

func parseUserJSON(data []byte, keys userInfoKeys) (*UserInfo, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: payload is empty", ErrInvalidUserInfo)
	}
	if !gjson.ValidBytes(trimmed) {
		return nil, fmt.Errorf("%w: payload is not valid json", ErrInvalidUserInfo)
	}

	doc := gjson.ParseBytes(trimmed)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: payload is not a json object", ErrInvalidUserInfo)
	}

	return &UserInfo{
		UserID:   firstString(doc, keys.userID),
		UserName: firstString(doc, keys.userName),
		Email:    firstString(doc, keys.email),
		RawJSON:  string(data),
	}, nil
}

// firstString returns the first key holding a non-empty scalar. Numbers
// (GitHub's numeric id) keep their textual form.
func firstString(doc gjson.Result, keys []string) string {
	for _, key := range keys {
		v := doc.Get(gjson.Escape(key))
		switch v.Type {
		case gjson.String:
			if v.Str != "" {
				return v.Str
			}
		case gjson.Number, gjson.True, gjson.False:
			return v.Raw
		}
	}
	return ""
}
