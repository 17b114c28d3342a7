package auth

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
)

// fieldValue keeps single-valued form fields as JSON strings and multi-valued ones as arrays.
type fieldValue []string

func (v fieldValue) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]string(v))
}

func (v *fieldValue) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*v = fieldValue{single}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(b, &multi); err != nil {
		return err
	}
	*v = multi
	return nil
}

// linkPayload is the plaintext sealed into a magic link token.
type linkPayload struct {
	Phone     string                `json:"p"`
	Form      map[string]fieldValue `json:"f,omitempty"`
	CreatedAt int64                 `json:"c"`
}

// newLinkPayload captures every form field other than the phone field verbatim.
func newLinkPayload(phone string, form url.Values, phoneField string, createdAtMillis int64) linkPayload {
	p := linkPayload{Phone: phone, CreatedAt: createdAtMillis}
	for key, values := range form {
		if key == phoneField {
			continue
		}
		if p.Form == nil {
			p.Form = make(map[string]fieldValue)
		}
		p.Form[key] = append(fieldValue(nil), values...)
	}
	return p
}

func (p linkPayload) encode() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode magic link payload: %w", err)
	}
	return string(raw), nil
}

// parseLinkPayload checks the payload shape: p must be a string and c a number.
func parseLinkPayload(raw string) (linkPayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return linkPayload{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var p linkPayload
	phoneRaw, ok := fields["p"]
	if !ok || string(phoneRaw) == "null" || json.Unmarshal(phoneRaw, &p.Phone) != nil {
		return linkPayload{}, ErrPayloadPhone
	}
	var created float64
	createdRaw, ok := fields["c"]
	if !ok || string(createdRaw) == "null" || json.Unmarshal(createdRaw, &created) != nil {
		return linkPayload{}, ErrPayloadCreatedAt
	}
	p.CreatedAt = int64(created)

	if formRaw, ok := fields["f"]; ok && string(formRaw) != "null" {
		if err := json.Unmarshal(formRaw, &p.Form); err != nil {
			return linkPayload{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	return p, nil
}

// values rebuilds the submitted form, re-injecting the phone under phoneField.
func (p linkPayload) values(phoneField string) url.Values {
	form := make(url.Values, len(p.Form)+1)
	keys := make([]string, 0, len(p.Form))
	for key := range p.Form {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, v := range p.Form[key] {
			form.Add(key, v)
		}
	}
	form.Set(phoneField, p.Phone)
	return form
}
