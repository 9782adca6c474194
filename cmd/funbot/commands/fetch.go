package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MEKXH/funbot/internal/config"
	"github.com/MEKXH/funbot/internal/fetch"
	"github.com/MEKXH/funbot/internal/image"
	"github.com/MEKXH/funbot/internal/joke"
	"github.com/MEKXH/funbot/internal/quote"
	"github.com/MEKXH/funbot/internal/render"
)

func NewFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "fetch <dog|cat|joke|quote> [tag]",
		Short:     "Call one of the public APIs directly",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"dog", "cat", "joke", "quote"},
		RunE:      runFetch,
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out, err := fetchOne(ctx, cfg, args)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func fetchOne(ctx context.Context, cfg *config.Config, args []string) (string, error) {
	fetcher := fetch.NewClient(cfg.APIs.TimeoutDuration())
	images := image.NewClient(fetcher, cfg.APIs.DogURL, cfg.APIs.CatURL)

	kind := strings.ToLower(strings.TrimSpace(args[0]))
	if kind != "quote" && len(args) > 1 {
		return "", fmt.Errorf("%s does not take a tag", kind)
	}

	switch kind {
	case "dog":
		img, err := images.RandomDog(ctx)
		return img.Link, err
	case "cat":
		img, err := images.RandomCat(ctx)
		return img.Link, err
	case "joke":
		text, err := joke.NewClient(fetcher, cfg.APIs.JokeURL).Random(ctx)
		if err != nil {
			return "", err
		}
		return render.StripSpoilers(text), nil
	case "quote":
		tag := ""
		if len(args) > 1 {
			tag = args[1]
		}
		q, err := quote.NewClient(fetcher, cfg.APIs.QuoteURL).Random(ctx, tag)
		if err != nil {
			return "", err
		}
		return q.String(), nil
	default:
		return "", fmt.Errorf("unknown api %q (want dog, cat, joke or quote)", args[0])
	}
}
