// Package image fetches random dog and cat pictures.
package image

import (
	"context"
	"strings"

	"github.com/MEKXH/funbot/internal/fetch"
	"github.com/MEKXH/funbot/internal/help"
)

const (
	DefaultDogURL = "https://dog.ceo/api/breeds/image/random"
	DefaultCatURL = "https://api.thecatapi.com/v1/images/search"
)

// Image is a link to a picture.
type Image struct {
	Link string
}

func (i Image) String() string { return i.Link }

// DogImage is the dog.ceo response body.
type DogImage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CatImage is one element of thecatapi search response.
type CatImage struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int64  `json:"width"`
	Height int64  `json:"height"`
}

// Help describes the /image command.
func Help() *help.Node {
	return help.New().
		SetName("image").
		SetDescription("Request images from the internet").
		AddChild(help.New().SetName("random_dog").SetDescription("Request a random dog image")).
		AddChild(help.New().SetName("random_cat").SetDescription("Request a random cat image"))
}

// Client fetches images from the dog and cat APIs.
type Client struct {
	fetcher *fetch.Client
	dogURL  string
	catURL  string
}

// NewClient returns a client; empty URLs fall back to the public endpoints.
func NewClient(fetcher *fetch.Client, dogURL, catURL string) *Client {
	if strings.TrimSpace(dogURL) == "" {
		dogURL = DefaultDogURL
	}
	if strings.TrimSpace(catURL) == "" {
		catURL = DefaultCatURL
	}
	return &Client{fetcher: fetcher, dogURL: dogURL, catURL: catURL}
}

// RandomDog returns a random dog picture.
func (c *Client) RandomDog(ctx context.Context) (Image, error) {
	var dog DogImage
	if err := c.fetcher.GetJSON(ctx, c.dogURL, &dog); err != nil {
		return Image{}, err
	}
	if dog.Status != "" && dog.Status != "success" {
		return Image{}, fetch.RequestFailed("dog api returned status %q", dog.Status)
	}
	if strings.TrimSpace(dog.Message) == "" {
		return Image{}, fetch.ResponseEmpty("The returned json was empty!")
	}
	return Image{Link: dog.Message}, nil
}

// RandomCat returns a random cat picture.
func (c *Client) RandomCat(ctx context.Context) (Image, error) {
	var cats []CatImage
	if err := c.fetcher.GetJSON(ctx, c.catURL, &cats); err != nil {
		return Image{}, err
	}
	if len(cats) == 0 || strings.TrimSpace(cats[0].URL) == "" {
		return Image{}, fetch.ResponseEmpty("The returned json was empty!")
	}
	return Image{Link: cats[0].URL}, nil
}
