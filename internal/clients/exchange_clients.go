package clients

import (
	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
)

// NewBinanceClient creates a Binance client. Market data endpoints work with empty credentials.
func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	return binance.NewClient(apiKey, apiSecret)
}

// NewBybitClient creates a Bybit client, authenticated only when a key is given.
func NewBybitClient(apiKey, apiSecret string) *bybit.Client {
	client := bybit.NewClient()
	if apiKey != "" {
		client = client.WithAuth(apiKey, apiSecret)
	}
	return client
}
