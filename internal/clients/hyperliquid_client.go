package clients

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
)

// HyperliquidClient wraps the SDK exchange. Only its Info API is used here, so any
// key works; without a configured key an ephemeral one is generated.
type HyperliquidClient struct {
	exchange    *hyperliquid.Exchange
	accountAddr string
}

// NewHyperliquidClient creates a client for baseURL (empty selects mainnet).
func NewHyperliquidClient(ctx context.Context, privateKeyHex, baseURL string) (*HyperliquidClient, error) {
	privateKey, err := loadOrGenerateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	pubECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("error casting public key to ECDSA")
	}
	accountAddr := crypto.PubkeyToAddress(*pubECDSA).Hex()

	// Info and SpotMeta are fetched lazily by the SDK
	ex := hyperliquid.NewExchange(ctx, privateKey, baseURL, nil, "", accountAddr, nil)

	return &HyperliquidClient{exchange: ex, accountAddr: accountAddr}, nil
}

func loadOrGenerateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	if privateKeyHex == "" {
		key, err := crypto.GenerateKey()
		return key, errors.Wrap(err, "failed to generate ephemeral key")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(privateKeyHex, "0x"), "0X"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid hyperliquid private key")
	}
	return key, nil
}

// Info returns the read-only market data API.
func (c *HyperliquidClient) Info() *hyperliquid.Info { return c.exchange.Info() }

// AccountAddress returns the address derived from the key.
func (c *HyperliquidClient) AccountAddress() string { return c.accountAddr }
