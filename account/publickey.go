package account

import (
	"bytes"
	"fmt"

	"github.com/lumechain/go-lume/store"
)

func (m *Manager) publicKeyEntity(id uint64) (*PublicKey, error) {
	payload, err := m.publicKeys.Get(accountKey(id))
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	var pk PublicKey
	if err := store.Decode(payload, &pk); err != nil {
		return nil, fmt.Errorf("decode public key failed: %v", err)
	}
	return &pk, nil
}

func (m *Manager) savePublicKey(pk *PublicKey) error {
	payload, err := store.Encode(pk)
	if err != nil {
		return fmt.Errorf("encode public key failed: %v", err)
	}
	return m.publicKeys.Insert(accountKey(pk.AccountID), payload)
}

// PublicKey returns the key bound to the account id, served from the
// cache when possible, or nil if none is bound.
func (m *Manager) PublicKey(id uint64) ([]byte, error) {
	if key, ok := m.keyCache.Get(id); ok {
		return key.([]byte), nil
	}
	pk, err := m.publicKeyEntity(id)
	if err != nil {
		return nil, err
	}
	if pk == nil || pk.Key == nil {
		return nil, nil
	}
	m.keyCache.Add(id, pk.Key)
	return pk.Key, nil
}

// SetOrVerifyPublicKey binds the key to the account if none is bound
// yet, returning true. With a key already bound it returns whether
// the supplied key matches; a mismatch mutates nothing and the caller
// must treat it as a validation failure.
func (m *Manager) SetOrVerifyPublicKey(id uint64, key []byte) (bool, error) {
	pk, err := m.publicKeyEntity(id)
	if err != nil {
		return false, err
	}
	if pk == nil {
		pk = &PublicKey{AccountID: id}
	}
	if pk.Key == nil {
		pk.Key = key
		pk.Height = m.chain.Height()
		if err := m.savePublicKey(pk); err != nil {
			return false, err
		}
		m.keyCache.Add(id, key)
		return true, nil
	}
	return bytes.Equal(pk.Key, key), nil
}

// ApplyPublicKey binds the sender key during transaction application.
// A bound key differing from the applied one is fatal: the signature
// was already verified against it.
func (m *Manager) ApplyPublicKey(acc *Account, key []byte) error {
	pk, err := m.publicKeyEntity(acc.ID)
	if err != nil {
		return err
	}
	if pk == nil {
		pk = &PublicKey{AccountID: acc.ID}
	}
	if pk.Key == nil {
		pk.Key = key
		pk.Height = m.chain.Height()
		if err := m.savePublicKey(pk); err != nil {
			return err
		}
	} else if !bytes.Equal(pk.Key, key) {
		return fmt.Errorf("%w for %s", ErrKeyMismatch, acc)
	}
	m.keyCache.Add(acc.ID, pk.Key)
	return nil
}
