package internal

import (
	"fmt"
	"net/http"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"

	"github.com/vadiminshakov/trendsignal/internal/clients"
	"github.com/vadiminshakov/trendsignal/internal/services/market/collector"
)

// serviceProvider creates platform-specific market data services.
type serviceProvider interface {
	KlineProvider() collector.KlineProvider
}

// newServiceProvider dispatches on the client type returned by NewClient.
func newServiceProvider(client any) (serviceProvider, error) {
	switch c := client.(type) {
	case *binance.Client:
		return &binanceProvider{client: c}, nil
	case *bybit.Client:
		return &bybitProvider{client: c}, nil
	case *clients.HyperliquidClient:
		return &hyperliquidProvider{client: c}, nil
	case *http.Client:
		return &coinbaseProvider{client: c}, nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type binanceProvider struct {
	client *binance.Client
}

func (p *binanceProvider) KlineProvider() collector.KlineProvider {
	return collector.NewBinanceKlineProvider(p.client)
}

type bybitProvider struct {
	client *bybit.Client
}

func (p *bybitProvider) KlineProvider() collector.KlineProvider {
	return collector.NewBybitKlineProvider(p.client)
}

type hyperliquidProvider struct {
	client *clients.HyperliquidClient
}

func (p *hyperliquidProvider) KlineProvider() collector.KlineProvider {
	return collector.NewHyperliquidKlineProvider(p.client.Info())
}

type coinbaseProvider struct {
	client *http.Client
}

func (p *coinbaseProvider) KlineProvider() collector.KlineProvider {
	return collector.NewCoinbaseKlineProvider(collector.CoinbaseBaseURL, p.client)
}
