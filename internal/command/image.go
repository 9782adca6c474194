package command

import (
	"context"

	"github.com/MEKXH/funbot/internal/cooldown"
	"github.com/MEKXH/funbot/internal/help"
	"github.com/MEKXH/funbot/internal/image"
)

// ImageSource is implemented by *image.Client.
type ImageSource interface {
	RandomDog(ctx context.Context) (image.Image, error)
	RandomCat(ctx context.Context) (image.Image, error)
}

// ImageCommand implements /image.
// Subcommands: random_dog, random_cat
type ImageCommand struct {
	Source   ImageSource
	Cooldown *cooldown.Limiter
}

func (c *ImageCommand) Name() string        { return "image" }
func (c *ImageCommand) Description() string { return "Request images from the internet" }
func (c *ImageCommand) Help() *help.Node    { return image.Help() }

func (c *ImageCommand) Execute(ctx context.Context, args string, env Env) Result {
	sub, _ := splitSubcommand(args)

	var fetchImage func(context.Context) (image.Image, error)
	switch sub {
	case "random_dog", "dog":
		fetchImage = c.Source.RandomDog
	case "random_cat", "cat":
		fetchImage = c.Source.RandomCat
	default:
		return helpResult(c.Help())
	}

	if err := c.Cooldown.Allow(env.CooldownKey); err != nil {
		return Result{Content: err.Error()}
	}

	img, err := fetchImage(ctx)
	if err != nil {
		return errorResult(err)
	}
	return Result{Content: img.String()}
}
