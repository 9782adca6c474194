// Package joke fetches jokes from JokeAPI.
package joke

import (
	"context"
	"strings"

	"github.com/MEKXH/funbot/internal/fetch"
	"github.com/MEKXH/funbot/internal/help"
)

const DefaultURL = "https://v2.jokeapi.dev/joke/Any?blacklistFlags=racist,sexist"

const (
	typeSingle  = "single"
	typeTwoPart = "twopart"
)

// Response is the subset of the JokeAPI payload funbot reads.
type Response struct {
	Error    bool   `json:"error"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Type     string `json:"type"`
	Joke     string `json:"joke"`
	Setup    string `json:"setup"`
	Delivery string `json:"delivery"`
}

// Text formats the joke. Two-part jokes hide the delivery behind a spoiler.
func (r Response) Text() string {
	switch r.Type {
	case typeTwoPart:
		setup := strings.TrimSpace(r.Setup)
		delivery := strings.TrimSpace(r.Delivery)
		if setup == "" || delivery == "" {
			return ""
		}
		return setup + "\n||" + delivery + "||"
	case typeSingle:
		return strings.TrimSpace(r.Joke)
	default:
		return ""
	}
}

// Help describes the /joke command.
func Help() *help.Node {
	return help.New().
		SetName("joke").
		SetDescription("Request a bad joke from the internet").
		AddChild(help.New().SetName("random").SetDescription("Request a random joke"))
}

type Client struct {
	fetcher *fetch.Client
	url     string
}

func NewClient(fetcher *fetch.Client, url string) *Client {
	if strings.TrimSpace(url) == "" {
		url = DefaultURL
	}
	return &Client{fetcher: fetcher, url: url}
}

// Random returns the text of a random joke.
func (c *Client) Random(ctx context.Context) (string, error) {
	var resp Response
	if err := c.fetcher.GetJSON(ctx, c.url, &resp); err != nil {
		return "", err
	}
	if resp.Error {
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = "joke api reported an error"
		}
		return "", fetch.RequestFailed("%s", msg)
	}
	if resp.Type == "" {
		return "", fetch.InvalidJSON("Invalid JSON content")
	}
	text := resp.Text()
	if text == "" {
		return "", fetch.ResponseEmpty("no joke in response of type %q", resp.Type)
	}
	return text, nil
}
