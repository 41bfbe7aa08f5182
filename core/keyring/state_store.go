package keyring

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/AvaProtocol/aa-keyring/storage"
	"github.com/AvaProtocol/aa-keyring/storage/schema"
)

// StorageStateStore keeps one key per wallet and per chain override. Save
// rewrites both key ranges in a single transaction so a crash never leaves a
// half written state.
type StorageStateStore struct {
	db storage.Storage
}

func NewStorageStateStore(db storage.Storage) *StorageStateStore {
	return &StorageStateStore{db: db}
}

func (s *StorageStateStore) Load() (*State, error) {
	state := NewState()

	wallets, err := s.db.GetByPrefix(schema.WalletPrefix)
	if err != nil {
		return nil, fmt.Errorf("cannot read wallets: %w", err)
	}
	for _, item := range wallets {
		var w Wallet
		if err := json.Unmarshal(item.Value, &w); err != nil {
			return nil, fmt.Errorf("corrupted wallet record %s: %w", item.Key, err)
		}
		state.Wallets[schema.IDFromKey(schema.WalletPrefix, item.Key)] = &w
	}

	configs, err := s.db.GetByPrefix(schema.ChainConfigPrefix)
	if err != nil {
		return nil, fmt.Errorf("cannot read chain configs: %w", err)
	}
	for _, item := range configs {
		var c ChainConfig
		if err := json.Unmarshal(item.Value, &c); err != nil {
			return nil, fmt.Errorf("corrupted chain config %s: %w", item.Key, err)
		}
		state.Config[schema.IDFromKey(schema.ChainConfigPrefix, item.Key)] = c
	}

	return state, nil
}

func (s *StorageStateStore) Save(state *State) error {
	updates := make(map[string][]byte, len(state.Wallets)+len(state.Config))
	for id, w := range state.Wallets {
		data, err := json.Marshal(w)
		if err != nil {
			return err
		}
		updates[string(schema.WalletStorageKey(id))] = data
	}
	for chainID, c := range state.Config {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		updates[string(schema.ChainConfigStorageKey(chainID))] = data
	}

	return s.db.ReplaceByPrefix([][]byte{schema.WalletPrefix, schema.ChainConfigPrefix}, updates)
}

// MemoryStateStore keeps the last saved state as JSON. It is used when the
// keyring runs without a database and in tests.
type MemoryStateStore struct {
	mu   sync.Mutex
	data []byte
}

func (m *MemoryStateStore) Load() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := NewState()
	if m.data == nil {
		return state, nil
	}
	if err := json.Unmarshal(m.data, state); err != nil {
		return nil, err
	}
	if state.Wallets == nil {
		state.Wallets = map[string]*Wallet{}
	}
	if state.Config == nil {
		state.Config = map[string]ChainConfig{}
	}
	return state, nil
}

func (m *MemoryStateStore) Save(state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}
