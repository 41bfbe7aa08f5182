package keyring

import (
	"context"
	"crypto/rand"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	"github.com/AvaProtocol/aa-keyring/core/chainio/signer"
	"github.com/AvaProtocol/aa-keyring/pkg/caip"
)

const (
	optionPrivateKey = "privateKey"
	optionSalt       = "salt"
)

// ListAccounts returns every account ordered by id, which is creation order.
func (k *Keyring) ListAccounts() []Account {
	state := k.snapshot()
	accounts := lo.MapToSlice(state.Wallets, func(_ string, w *Wallet) Account {
		return w.Account.clone()
	})
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})
	return accounts
}

func (k *Keyring) GetAccount(id string) (Account, error) {
	w, err := k.GetWallet(id)
	if err != nil {
		return Account{}, err
	}
	return w.Account, nil
}

// GetWallet returns a copy of the wallet record, key material included.
func (k *Keyring) GetWallet(id string) (*Wallet, error) {
	w, ok := k.snapshot().Wallets[id]
	if !ok {
		return nil, newError(KindNotFound, "%s: %s", AccountNotFoundError, id)
	}
	return w.clone(), nil
}

// GetWalletByAddress matches the smart account address case-insensitively.
func (k *Keyring) GetWalletByAddress(address string) (*Wallet, error) {
	w, ok := findWalletByAddress(k.snapshot(), address)
	if !ok {
		return nil, newError(KindNotFound, "%s: %s", AccountNotFoundError, address)
	}
	return w.clone(), nil
}

func findWalletByAddress(state *State, address string) (*Wallet, bool) {
	return lo.Find(lo.Values(state.Wallets), func(w *Wallet) bool {
		return strings.EqualFold(w.Account.Address, address)
	})
}

// CreateAccount derives a smart account for the admin key in
// options["privateKey"], or for a fresh key when none is given. The key is
// removed from the stored options. options["salt"] is an optional uint256.
func (k *Keyring) CreateAccount(ctx context.Context, options map[string]interface{}) (Account, error) {
	options = lo.Assign(options)

	admin, err := k.adminSigner(options[optionPrivateKey])
	if err != nil {
		return Account{}, err
	}
	delete(options, optionPrivateKey)

	cc, err := k.resolveChain(ctx)
	if err != nil {
		return Account{}, err
	}
	factoryAddress, err := cc.factoryAddress()
	if err != nil {
		return Account{}, err
	}
	factory, err := k.contracts.Factory(factoryAddress)
	if err != nil {
		return Account{}, wrapError(KindInternal, err, "cannot bind account factory")
	}

	salt, err := parseSalt(options[optionSalt])
	if err != nil {
		return Account{}, err
	}

	address, err := factory.GetAddress(ctx, admin.Address(), salt)
	if err != nil {
		return Account{}, wrapError(KindInternal, err, "cannot compute account address")
	}
	if _, taken := findWalletByAddress(k.snapshot(), address.Hex()); taken {
		return Account{}, newError(KindDuplicateAddress, "%s: %s", AddressInUseError, address.Hex())
	}

	initCode, err := factory.GetInitCode(admin.Address(), salt)
	if err != nil {
		return Account{}, wrapError(KindInternal, err, "cannot build init code")
	}

	code, err := k.provider.CodeAt(ctx, address, nil)
	if err != nil {
		return Account{}, wrapError(KindInternal, err, "cannot read account code")
	}
	if len(code) > 0 {
		return Account{}, newError(KindDuplicateAddress, SaltCollisionError)
	}

	wallet := &Wallet{
		Account: Account{
			ID:      ulid.Make().String(),
			Address: address.Hex(),
			Options: options,
			Methods: append([]string(nil), defaultAccountMethods...),
			Type:    AccountTypeERC4337,
		},
		Admin:      admin.Address().Hex(),
		PrivateKey: admin.PrivateKeyHex(),
		Chains:     map[string]bool{cc.scope: false},
		Salt:       hexutil.Encode(common.LeftPadBytes(salt.Bytes(), 32)),
		InitCode:   hexutil.Encode(initCode),
	}

	err = k.commit(ctx, func(next *State) ([]pendingEvent, error) {
		// another create may have won the race since the lookup above
		if _, taken := findWalletByAddress(next, wallet.Account.Address); taken {
			return nil, newError(KindDuplicateAddress, "%s: %s", AddressInUseError, wallet.Account.Address)
		}
		next.Wallets[wallet.Account.ID] = wallet
		return []pendingEvent{{
			kind:    EventAccountCreated,
			payload: map[string]interface{}{"account": wallet.Account.clone()},
		}}, nil
	})
	if err != nil {
		return Account{}, err
	}

	k.logger.Info("account created", "id", wallet.Account.ID, "address", wallet.Account.Address, "admin", wallet.Admin, "chain", cc.scope)
	return wallet.Account.clone(), nil
}

func (k *Keyring) adminSigner(raw interface{}) (*signer.Signer, error) {
	var key string
	switch v := raw.(type) {
	case nil:
	case string:
		key = v
	default:
		return nil, sensitiveError()
	}

	if key == "" {
		if k.requirePrivateKey {
			return nil, newError(KindInvalidArgument, PrivateKeyRequiredError)
		}
		s, err := signer.Generate()
		if err != nil {
			return nil, sensitiveError()
		}
		return s, nil
	}

	s, err := signer.FromPrivateKeyHex(key)
	if err != nil {
		return nil, sensitiveError()
	}
	return s, nil
}

// parseSalt accepts a hex or decimal string, or a JSON number. A missing salt
// is 32 random bytes.
func parseSalt(raw interface{}) (*big.Int, error) {
	switch v := raw.(type) {
	case nil:
		var buf [32]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, wrapError(KindInternal, err, "cannot generate salt")
		}
		return new(big.Int).SetBytes(buf[:]), nil
	case string:
		salt, ok := math.ParseBig256(v)
		if !ok || salt.Sign() < 0 {
			return nil, newError(KindInvalidArgument, "%s: %q", InvalidSaltError, v)
		}
		return salt, nil
	case float64:
		salt, ok := exactJSONInteger(v)
		if !ok {
			return nil, newError(KindInvalidArgument, "%s: %v", InvalidSaltError, v)
		}
		return salt, nil
	case *big.Int:
		if v.Sign() < 0 || v.BitLen() > 256 {
			return nil, newError(KindInvalidArgument, "%s: %s", InvalidSaltError, v)
		}
		return new(big.Int).Set(v), nil
	default:
		return nil, newError(KindInvalidArgument, "%s: %v", InvalidSaltError, v)
	}
}

// UpdateAccount overlays the non-empty fields of account on the stored
// profile. The address cannot change.
func (k *Keyring) UpdateAccount(ctx context.Context, account Account) error {
	if _, ok := k.snapshot().Wallets[account.ID]; !ok {
		return newError(KindNotFound, "%s: %s", AccountNotFoundError, account.ID)
	}
	if lo.Some(account.Methods, unsupportedAccountMethods) {
		return newError(KindUnsupportedOperation, NotEIP1271Error)
	}

	var updated Account
	err := k.commit(ctx, func(next *State) ([]pendingEvent, error) {
		wallet, ok := next.Wallets[account.ID]
		if !ok {
			return nil, newError(KindNotFound, "%s: %s", AccountNotFoundError, account.ID)
		}

		updated = wallet.Account.clone()
		if account.Options != nil {
			updated.Options = account.clone().Options
		}
		if account.Methods != nil {
			updated.Methods = append([]string(nil), account.Methods...)
		}
		if account.Type != "" {
			updated.Type = account.Type
		}
		wallet.Account = updated

		return []pendingEvent{{
			kind:    EventAccountUpdated,
			payload: map[string]interface{}{"account": updated.clone()},
		}}, nil
	})
	if err != nil {
		return err
	}

	k.logger.Info("account updated", "id", account.ID, "methods", updated.Methods)
	return nil
}

// DeleteAccount removes the wallet. Unknown ids are reported to the host as
// deleted too unless the keyring runs with strict deletes.
func (k *Keyring) DeleteAccount(ctx context.Context, id string) error {
	err := k.commit(ctx, func(next *State) ([]pendingEvent, error) {
		if _, ok := next.Wallets[id]; !ok && k.strictDelete {
			return nil, newError(KindNotFound, "%s: %s", AccountNotFoundError, id)
		}
		delete(next.Wallets, id)
		return []pendingEvent{{
			kind:    EventAccountDeleted,
			payload: map[string]interface{}{"id": id},
		}}, nil
	})
	if err != nil {
		return err
	}

	k.logger.Info("account deleted", "id", id)
	return nil
}

// FilterSupportedChains keeps the EVM CAIP-2 ids of chains, in order. Every
// account can run on any EVM chain so id is not consulted.
func (k *Keyring) FilterSupportedChains(id string, chains []string) []string {
	return lo.Filter(chains, func(chain string, _ int) bool {
		return caip.IsEvmChain(chain)
	})
}

// markChainSeen records that the wallet's account answered on scope. The
// state is only written when the flag changes.
func (k *Keyring) markChainSeen(ctx context.Context, walletID, scope string) error {
	if w, ok := k.snapshot().Wallets[walletID]; !ok || w.Chains[scope] {
		return nil
	}

	return k.commit(ctx, func(next *State) ([]pendingEvent, error) {
		if w, ok := next.Wallets[walletID]; ok {
			w.Chains[scope] = true
		}
		return nil, nil
	})
}
