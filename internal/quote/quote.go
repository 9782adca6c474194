// Package quote fetches random quotes from the quotable API.
package quote

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/MEKXH/funbot/internal/fetch"
	"github.com/MEKXH/funbot/internal/help"
)

// DefaultURL is quotable's random quote endpoint.
// https://github.com/lukePeavey/quotable#get-random-quote
const DefaultURL = "https://api.quotable.io/random"

type Quote struct {
	ID           string   `json:"_id"`
	Content      string   `json:"content"`
	Author       string   `json:"author"`
	Tags         []string `json:"tags"`
	AuthorSlug   string   `json:"authorSlug"`
	Length       int64    `json:"length"`
	DateAdded    string   `json:"dateAdded"`
	DateModified string   `json:"dateModified"`
}

func (q Quote) String() string {
	author := strings.TrimSpace(q.Author)
	if author == "" {
		author = "Unknown"
	}
	return fmt.Sprintf("%q - %s", strings.TrimSpace(q.Content), author)
}

// Help describes the /quote command.
func Help() *help.Node {
	return help.New().
		SetName("quote").
		SetDescription("Request a quote from the internet").
		AddChild(help.New().
			SetName("random").
			SetDescription("Request a random quote").
			AddOption(help.NewOption("tag", "string", "Only return quotes with this tag")))
}

type Client struct {
	fetcher *fetch.Client
	url     string
}

func NewClient(fetcher *fetch.Client, rawURL string) *Client {
	if strings.TrimSpace(rawURL) == "" {
		rawURL = DefaultURL
	}
	return &Client{fetcher: fetcher, url: rawURL}
}

// Random returns a random quote, optionally restricted to tag.
func (c *Client) Random(ctx context.Context, tag string) (Quote, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return Quote{}, fetch.RequestFailed("invalid quote endpoint: %v", err)
	}
	if tag = strings.TrimSpace(tag); tag != "" {
		q := u.Query()
		q.Set("tags", tag)
		u.RawQuery = q.Encode()
	}

	var out Quote
	if err := c.fetcher.GetJSON(ctx, u.String(), &out); err != nil {
		return Quote{}, err
	}
	if strings.TrimSpace(out.Content) == "" {
		return Quote{}, fetch.ResponseEmpty("The returned json was empty!")
	}
	return out, nil
}
