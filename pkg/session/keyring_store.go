package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "xscraper"
	keyringPrefix  = "blob_"
)

// Errors
var (
	ErrBlobNotFound    = errors.New("session: credential blob not found")
	ErrInvalidAccount  = errors.New("session: account name is required")
	ErrKeyringDisabled = errors.New("session: keyring not available")
)

// StoredBlob is the keychain payload: the encrypted credential blob plus the
// salt it was sealed under. The keychain never sees plaintext cookie values.
type StoredBlob struct {
	Ciphertext string `json:"ciphertext"`
	Salt       string `json:"salt"`
}

// KeyringStore keeps encrypted credential blobs in the system keychain.
// Used by the CLI; the engine itself receives sessions fully formed.
type KeyringStore struct{}

// NewKeyringStore creates a keychain-backed blob store, probing availability.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyringDisabled, err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves the encrypted blob and its salt under the account name.
func (k *KeyringStore) Store(account string, ciphertext, salt []byte) error {
	if account == "" {
		return ErrInvalidAccount
	}

	data, err := json.Marshal(StoredBlob{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Salt:       base64.StdEncoding.EncodeToString(salt),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal blob: %w", err)
	}

	if err := keyring.Set(keyringService, keyringPrefix+account, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	return nil
}

// Retrieve loads the encrypted blob and salt for the account name.
func (k *KeyringStore) Retrieve(account string) (ciphertext, salt []byte, err error) {
	if account == "" {
		return nil, nil, ErrInvalidAccount
	}

	data, err := keyring.Get(keyringService, keyringPrefix+account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var blob StoredBlob
	if err := json.Unmarshal([]byte(data), &blob); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal blob: %w", err)
	}

	ciphertext, err = base64.StdEncoding.DecodeString(blob.Ciphertext)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	salt, err = base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	return ciphertext, salt, nil
}

// Delete removes the stored blob for the account name.
func (k *KeyringStore) Delete(account string) error {
	if account == "" {
		return ErrInvalidAccount
	}
	if err := keyring.Delete(keyringService, keyringPrefix+account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
