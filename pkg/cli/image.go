package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"genstudio/pkg/media"
	"genstudio/pkg/model"
	"genstudio/pkg/usecase/image"
)

func imageCommand() *cli.Command {
	var (
		cfg         config
		prompt      string
		aspectRatio string
		title       string
		itemID      string
		output      string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"t"},
			Usage:       "Prompt describing the image",
			Required:    true,
			Destination: &prompt,
		},
		&cli.StringFlag{
			Name:        "aspect-ratio",
			Usage:       "Aspect ratio (1:1, 16:9, 9:16, 4:3, 3:4)",
			Value:       "1:1",
			Destination: &aspectRatio,
		},
		&cli.StringFlag{
			Name:        "title",
			Usage:       "History title (defaults to the prompt)",
			Destination: &title,
		},
		&cli.StringFlag{
			Name:        "continue",
			Usage:       "History item ID of an image session to regenerate",
			Destination: &itemID,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Path of the image file to write",
			Value:       "image.png",
			Destination: &output,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "image",
		Usage: "Generate an image from a prompt",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			input := image.NewInput{Repo: repo, Gemini: gemini}
			if itemID != "" {
				id := model.HistoryID(itemID)
				input.ItemID = &id
			}

			session, err := image.New(ctx, input)
			if err != nil {
				return goerr.Wrap(err, "failed to create image session")
			}
			defer session.Close()

			result, err := session.Generate(ctx, image.GenerateInput{
				Prompt:      prompt,
				AspectRatio: aspectRatio,
				Title:       title,
			})
			if err != nil {
				printFailure(c.Root().Writer, err)
				return goerr.Wrap(err, "image generation failed")
			}

			blob, err := media.BlobFromBase64(media.StripDataURI(result.ImageURL), "")
			if err != nil {
				return goerr.Wrap(err, "failed to decode generated image")
			}
			if err := os.WriteFile(output, blob.Data, 0600); err != nil {
				return goerr.Wrap(err, "failed to write image file", goerr.V("path", output))
			}

			fmt.Fprintf(c.Root().Writer, "Saved %s (%s)\n", result.Item.ID, result.Item.Title)
			fmt.Fprintf(c.Root().Writer, "Image: %s\n", output)
			return nil
		},
	}
}
