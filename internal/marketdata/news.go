package marketdata

import (
	"context"
	"strings"

	"MarketPulse/internal/domain/models"
	pkghttp "MarketPulse/pkg/http"
	"MarketPulse/pkg/logger"
)

// DefaultHeadlineLimit caps the headlines carried per context.
const DefaultHeadlineLimit = 5

// NewsFeed fetches market headlines and filters them down to the ones
// relevant to a symbol. A degraded upstream yields an empty headline list,
// never an error.
type NewsFeed struct {
	endpoint string
	limit    int
	client   *pkghttp.Client
	log      *logger.Logger
}

// NewNewsFeed creates a NewsFeed reading from the given endpoint.
func NewNewsFeed(endpoint string, limit int, client *pkghttp.Client, log *logger.Logger) *NewsFeed {
	if limit <= 0 {
		limit = DefaultHeadlineLimit
	}
	return &NewsFeed{endpoint: endpoint, limit: limit, client: client, log: log}
}

type newsItem struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedOn int64  `json:"published_on"`
	Tags        string `json:"tags"`
	Categories  string `json:"categories"`
}

type newsResponse struct {
	Data []newsItem `json:"Data"`
}

// FetchHeadlines returns up to the configured number of headlines for a
// symbol: symbol-specific items first, then generic market items that do
// not mention other coins, de-duplicated by URL.
func (f *NewsFeed) FetchHeadlines(ctx context.Context, symbol string) models.NewsBlock {
	var resp newsResponse
	err := f.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    f.endpoint,
	}, &resp)
	if err != nil {
		f.log.Warn("news fetch failed",
			logger.String("symbol", symbol),
			logger.Error(err))
		return models.NewsBlock{Headlines: []models.Headline{}}
	}

	terms := searchTerms(symbol)

	var picked []newsItem
	seen := make(map[string]bool)
	for _, item := range resp.Data {
		if matchesAny(item.searchText(), terms) {
			picked = append(picked, item)
			seen[item.URL] = true
		}
	}

	if len(picked) < f.limit {
		exclude := otherCoinTerms(symbol)
		for _, item := range resp.Data {
			if len(picked) >= f.limit {
				break
			}
			if seen[item.URL] {
				continue
			}
			text := strings.ToLower(item.Title + " " + item.Body)
			if matchesAny(text, exclude) {
				continue
			}
			picked = append(picked, item)
			seen[item.URL] = true
		}
	}

	if len(picked) > f.limit {
		picked = picked[:f.limit]
	}

	headlines := make([]models.Headline, 0, len(picked))
	for _, item := range picked {
		headlines = append(headlines, models.Headline{
			Title:       item.Title,
			URL:         item.URL,
			PublishedAt: item.PublishedOn,
			Source:      item.Source,
		})
	}
	return models.NewsBlock{Headlines: headlines}
}

func (i newsItem) searchText() string {
	return strings.ToLower(i.Title + " " + i.Body + " " + i.Tags + " " + i.Categories)
}

func matchesAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// otherCoinTerms returns the well-known coin terms excluding the ones
// belonging to symbol itself, so generic backfill skips coin-specific news.
func otherCoinTerms(symbol string) []string {
	upper := strings.ToUpper(symbol)
	out := make([]string, 0, len(generalNewsTerms))
	for _, term := range generalNewsTerms {
		if strings.ToUpper(term) == upper {
			continue
		}
		out = append(out, term)
	}
	return out
}
