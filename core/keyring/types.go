package keyring

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const AccountTypeERC4337 = "eip155:erc4337"

// Request methods
const (
	MethodPrepareUserOperation = "eth_prepareUserOperation"
	MethodPatchUserOperation   = "eth_patchUserOperation"
	MethodSignUserOperation    = "eth_signUserOperation"

	// combined prepare-and-sign, without and with a fee token paymaster
	MethodSendUserOpBoba   = "eth_sendUserOpBoba"
	MethodSendUserOpBobaPM = "eth_sendUserOpBobaPM"

	MethodGetConfigs = "keyring_getConfigs"
	MethodSetConfig  = "keyring_setConfig"
)

// Signing methods a smart account cannot honour. An account advertising
// any of them is rejected on update.
var unsupportedAccountMethods = []string{
	"eth_signTransaction",
	"eth_sign",
	"personal_sign",
	"eth_signTypedData_v1",
	"eth_signTypedData_v3",
	"eth_signTypedData_v4",
}

var defaultAccountMethods = []string{
	MethodPrepareUserOperation,
	MethodPatchUserOperation,
	MethodSignUserOperation,
}

// EventKind names the notifications sent to the host.
type EventKind string

const (
	EventAccountCreated EventKind = "notify:accountCreated"
	EventAccountUpdated EventKind = "notify:accountUpdated"
	EventAccountDeleted EventKind = "notify:accountDeleted"
)

// Account is the public profile of a wallet.
type Account struct {
	ID      string                 `json:"id" mapstructure:"id" validate:"required"`
	Address string                 `json:"address" mapstructure:"address"`
	Options map[string]interface{} `json:"options" mapstructure:"options"`
	Methods []string               `json:"methods" mapstructure:"methods"`
	Type    string                 `json:"type" mapstructure:"type"`
}

func (a Account) clone() Account {
	out := a
	out.Methods = append([]string(nil), a.Methods...)
	if a.Options != nil {
		out.Options = make(map[string]interface{}, len(a.Options))
		for k, v := range a.Options {
			out.Options[k] = v
		}
	}
	return out
}

// Wallet binds an admin key to a smart account.
type Wallet struct {
	Account    Account         `json:"account"`
	Admin      string          `json:"admin"`
	PrivateKey string          `json:"privateKey"`
	Chains     map[string]bool `json:"chains"`
	// Salt is the uint256 salt as a 0x prefixed 32 byte word.
	Salt string `json:"salt"`
	// InitCode is factory address followed by createAccount calldata, 0x hex.
	InitCode string `json:"initCode"`
}

func (w *Wallet) clone() *Wallet {
	out := *w
	out.Account = w.Account.clone()
	out.Chains = make(map[string]bool, len(w.Chains))
	for k, v := range w.Chains {
		out.Chains[k] = v
	}
	return &out
}

// ChainConfig overrides the compiled defaults of one chain. Empty fields fall
// back to the defaults.
type ChainConfig struct {
	SimpleAccountFactory            string `json:"simpleAccountFactory,omitempty" mapstructure:"simpleAccountFactory" validate:"omitempty,eth_addr"`
	EntryPoint                      string `json:"entryPoint,omitempty" mapstructure:"entryPoint" validate:"omitempty,eth_addr"`
	EntryPointVersion               string `json:"entryPointVersion,omitempty" mapstructure:"entryPointVersion" validate:"omitempty,oneof=0.6.0 0.7.0"`
	BundlerURL                      string `json:"bundlerUrl,omitempty" mapstructure:"bundlerUrl" validate:"omitempty,url"`
	CustomVerifyingPaymasterSK      string `json:"customVerifyingPaymasterSK,omitempty" mapstructure:"customVerifyingPaymasterSK" validate:"omitempty,privkey"`
	CustomVerifyingPaymasterAddress string `json:"customVerifyingPaymasterAddress,omitempty" mapstructure:"customVerifyingPaymasterAddress" validate:"omitempty,eth_addr"`
}

// merge overlays the non-empty fields of patch.
func (c ChainConfig) merge(patch ChainConfig) ChainConfig {
	if patch.SimpleAccountFactory != "" {
		c.SimpleAccountFactory = patch.SimpleAccountFactory
	}
	if patch.EntryPoint != "" {
		c.EntryPoint = patch.EntryPoint
	}
	if patch.EntryPointVersion != "" {
		c.EntryPointVersion = patch.EntryPointVersion
	}
	if patch.BundlerURL != "" {
		c.BundlerURL = patch.BundlerURL
	}
	if patch.CustomVerifyingPaymasterSK != "" {
		c.CustomVerifyingPaymasterSK = patch.CustomVerifyingPaymasterSK
	}
	if patch.CustomVerifyingPaymasterAddress != "" {
		c.CustomVerifyingPaymasterAddress = patch.CustomVerifyingPaymasterAddress
	}
	return c
}

// State is everything the keyring persists.
type State struct {
	Wallets map[string]*Wallet     `json:"wallets"`
	Config  map[string]ChainConfig `json:"config"`
}

func NewState() *State {
	return &State{
		Wallets: map[string]*Wallet{},
		Config:  map[string]ChainConfig{},
	}
}

func (s *State) clone() *State {
	out := NewState()
	for id, w := range s.Wallets {
		out.Wallets[id] = w.clone()
	}
	for id, c := range s.Config {
		out.Config[id] = c
	}
	return out
}

// Transaction is the intent a UserOperation executes through the account.
type Transaction struct {
	To    *common.Address `mapstructure:"to"`
	Value *big.Int        `mapstructure:"value"`
	Data  []byte          `mapstructure:"data"`
}

// Request is a method call submitted against an account on a chain.
type Request struct {
	ID      string        `json:"id"`
	Scope   string        `json:"scope"`
	Account string        `json:"account"`
	Request RequestMethod `json:"request"`
}

type RequestMethod struct {
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the envelope of every submitted request. The keyring answers
// synchronously so Pending is always false.
type Response struct {
	Pending bool        `json:"pending"`
	Result  interface{} `json:"result"`
}
