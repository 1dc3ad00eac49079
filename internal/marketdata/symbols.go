package marketdata

import "strings"

// exchangeSymbols maps asset symbols to their primary-exchange pair names.
// Unmapped symbols fall back to the {SYMBOL}{quoteAsset} pattern.
var exchangeSymbols = map[string]string{
	"BTC":  "BTCUSDT",
	"ETH":  "ETHUSDT",
	"SOL":  "SOLUSDT",
	"AVAX": "AVAXUSDT",
	"ARB":  "ARBUSDT",
	"DOGE": "DOGEUSDT",
	"XRP":  "XRPUSDT",
}

// coinGeckoIDs maps asset symbols to CoinGecko coin ids. Unmapped symbols
// fall back to the lowercased symbol.
var coinGeckoIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"AVAX": "avalanche-2",
	"ARB":  "arbitrum",
	"DOGE": "dogecoin",
	"XRP":  "ripple",
}

// newsNames lists the name variations a symbol appears under in headlines.
var newsNames = map[string][]string{
	"BTC":   {"bitcoin", "BTC", "Bitcoin"},
	"ETH":   {"ethereum", "ETH", "Ethereum"},
	"SOL":   {"solana", "SOL", "Solana"},
	"AVAX":  {"avalanche", "AVAX", "Avalanche"},
	"ARB":   {"arbitrum", "ARB", "Arbitrum"},
	"DOGE":  {"dogecoin", "DOGE", "Dogecoin", "doge"},
	"MATIC": {"polygon", "MATIC", "Polygon", "matic"},
	"LINK":  {"chainlink", "LINK", "Chainlink"},
	"ADA":   {"cardano", "ADA", "Cardano"},
	"DOT":   {"polkadot", "DOT", "Polkadot"},
	"UNI":   {"uniswap", "UNI", "Uniswap"},
	"ATOM":  {"cosmos", "ATOM", "Cosmos"},
	"XRP":   {"ripple", "XRP", "Ripple", "xrp"},
	"BNB":   {"binance", "BNB", "Binance Coin", "binance coin"},
	"LTC":   {"litecoin", "LTC", "Litecoin"},
	"BCH":   {"bitcoin cash", "BCH", "Bitcoin Cash"},
}

// generalNewsTerms marks headlines as coin-specific during generic backfill.
var generalNewsTerms = []string{
	"BTC", "ETH", "SOL", "AVAX", "ARB", "DOGE",
	"bitcoin", "ethereum", "solana", "avalanche", "arbitrum", "dogecoin",
}

// ExchangeSymbol resolves the primary-exchange pair for an asset symbol.
func ExchangeSymbol(symbol, quoteAsset string) string {
	upper := strings.ToUpper(symbol)
	if mapped, ok := exchangeSymbols[upper]; ok {
		return mapped
	}
	return upper + strings.ToUpper(quoteAsset)
}

// CoinID resolves the secondary-source coin id for an asset symbol.
func CoinID(symbol string) string {
	if id, ok := coinGeckoIDs[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// searchTerms returns the strings used to match headlines to a symbol.
func searchTerms(symbol string) []string {
	upper := strings.ToUpper(symbol)
	lower := strings.ToLower(symbol)

	var terms []string
	if names, ok := newsNames[upper]; ok {
		terms = append(terms, names...)
	} else {
		terms = append(terms, upper, lower)
		if id, ok := coinGeckoIDs[upper]; ok {
			name := strings.ReplaceAll(strings.TrimSuffix(id, "-2"), "-", " ")
			terms = append(terms, name, titleCase(name), strings.ToUpper(name))
		}
	}
	return append(terms, upper, lower, upper+"USD", upper+"/USD")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
