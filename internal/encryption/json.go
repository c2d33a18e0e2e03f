package encryption

import (
	"encoding/json"
	"fmt"
)

// EncryptJSON marshals v to JSON and encrypts the bytes. Nested structures,
// arrays and null fields survive the round trip unchanged.
func (e *Engine) EncryptJSON(v any) (*Envelope, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encryption: marshal payload: %w", err)
	}
	return e.Encrypt(data)
}

// DecryptJSON decrypts the envelope and unmarshals the plaintext into out.
func (e *Engine) DecryptJSON(env *Envelope, out any) error {
	plaintext, err := e.Decrypt(env)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("encryption: unmarshal payload: %w", err)
	}
	return nil
}
