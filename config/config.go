package config

import (
	"os"
	"path"
	"time"

	"github.com/naoina/toml"
	"github.com/sgawallet/sga-wallet/common/utils"
)

type Common struct {
	Level       string // local, alpha, prod
	ServiceName string
}

type LogInfo struct {
	Path        string
	MaxAgeHour  int
	RotateHour  int
	AlertURL    string // error webhook, prod only
	AlertChatID int
}

type DB struct {
	Path string
}

type Server struct {
	RestPort       int      `toml:"RestPort"`
	AllowedOrigins []string `toml:"AllowedOrigins"`
}

// Aggregator controls asset refresh passes.
type Aggregator struct {
	IntervalSec    int `toml:"IntervalSec"`    // periodic refresh, 0 disables
	CallTimeoutSec int `toml:"CallTimeoutSec"` // per external call
	MaxConcurrency int `toml:"MaxConcurrency"` // in-flight units per pass
}

// Price is the fiat price oracle (CoinGecko compatible).
type Price struct {
	BaseURL           string            `toml:"BaseURL"`
	APIKey            string            `toml:"APIKey"`
	VsCurrency        string            `toml:"VsCurrency"`
	RequestsPerMinute int               `toml:"RequestsPerMinute"`
	CacheTTLSec       int               `toml:"CacheTTLSec"`
	SymbolIDs         map[string]string `toml:"SymbolIDs"` // symbol -> oracle coin id
}

type Token struct {
	Address  string `toml:"address"`
	Symbol   string `toml:"symbol"`
	Decimals uint8  `toml:"decimals"`
}

type EVMNetwork struct {
	Name          string  `toml:"name"`
	ChainID       uint64  `toml:"chainId"`
	RPC           string  `toml:"rpc"`
	NativeSymbol  string  `toml:"nativeSymbol"`
	PricePlatform string  `toml:"pricePlatform"` // oracle platform id for token contracts
	Tokens        []Token `toml:"tokens"`
}

type EVM struct {
	Networks []EVMNetwork `toml:"networks"`
}

type Solana struct {
	RPC        string `toml:"RPC"`
	Commitment string `toml:"Commitment"`
}

type Bitcoin struct {
	APIBase string `toml:"APIBase"` // blockstream/esplora compatible
}

type XRPL struct {
	RPC string `toml:"RPC"`
}

// Relay is the remote-signing relay used by relay-protocol providers.
type Relay struct {
	URL                 string `toml:"URL"`
	ProjectID           string `toml:"ProjectID"`
	Origin              string `toml:"Origin"`
	HandshakeTimeoutSec int    `toml:"HandshakeTimeoutSec"`
	ApprovalTimeoutSec  int    `toml:"ApprovalTimeoutSec"`
}

type Config struct {
	Common     Common
	LogInfo    LogInfo
	DB         DB
	Server     Server
	Aggregator Aggregator
	Price      Price
	EVM        EVM
	Solana     Solana
	Bitcoin    Bitcoin
	XRPL       XRPL
	Relay      Relay
}

func NewConfig(filepath string) (*Config, error) {
	if filepath == "" {
		workDir, _ := os.Getwd()
		rootDir := utils.FindProjectRoot(workDir)
		filepath = path.Join(rootDir, "config", "config.toml")
	}

	if file, err := os.Open(filepath); err != nil {
		return nil, err
	} else {
		defer file.Close()

		c := new(Config)
		if err := toml.NewDecoder(file).Decode(c); err != nil {
			return nil, err
		} else {
			c.sanitize()
			return c, nil
		}
	}
}

func (p *Config) sanitize() {
	if p.LogInfo.Path != "" && p.LogInfo.Path[0] == byte('~') {
		p.LogInfo.Path = path.Join(utils.HomeDir(), p.LogInfo.Path[1:])
	}
	if p.DB.Path != "" && p.DB.Path[0] == byte('~') {
		p.DB.Path = path.Join(utils.HomeDir(), p.DB.Path[1:])
	}
	if p.Common.ServiceName == "" {
		p.Common.ServiceName = "sga-wallet"
	}
	if p.Aggregator.CallTimeoutSec <= 0 {
		p.Aggregator.CallTimeoutSec = 10
	}
	if p.Aggregator.MaxConcurrency <= 0 {
		p.Aggregator.MaxConcurrency = 16
	}
	if p.Price.VsCurrency == "" {
		p.Price.VsCurrency = "usd"
	}
	if p.Price.CacheTTLSec <= 0 {
		p.Price.CacheTTLSec = 60
	}
	if p.Solana.Commitment == "" {
		p.Solana.Commitment = "finalized"
	}
	if p.Relay.HandshakeTimeoutSec <= 0 {
		p.Relay.HandshakeTimeoutSec = 10
	}
	if p.Relay.ApprovalTimeoutSec <= 0 {
		p.Relay.ApprovalTimeoutSec = 120
	}
	for i := range p.EVM.Networks {
		if p.EVM.Networks[i].NativeSymbol == "" {
			p.EVM.Networks[i].NativeSymbol = "ETH"
		}
	}
}

func (p *Config) GetConfig() *Config {
	return p
}

func (p *Config) GetLogInfoConfig() *LogInfo {
	return &p.LogInfo
}

// CallTimeout is the bound applied to every external balance/price call.
func (p *Config) CallTimeout() time.Duration {
	return time.Duration(p.Aggregator.CallTimeoutSec) * time.Second
}

// RefreshInterval is zero when periodic aggregation is disabled.
func (p *Config) RefreshInterval() time.Duration {
	return time.Duration(p.Aggregator.IntervalSec) * time.Second
}
