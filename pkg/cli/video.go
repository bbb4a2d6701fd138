package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"genstudio/pkg/media"
	"genstudio/pkg/model"
	"genstudio/pkg/usecase/video"
)

func videoCommand() *cli.Command {
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
			Usage:       "Prompt describing the video",
			Required:    true,
			Destination: &prompt,
		},
		&cli.StringFlag{
			Name:        "aspect-ratio",
			Usage:       "Aspect ratio (16:9 or 9:16)",
			Value:       "16:9",
			Destination: &aspectRatio,
		},
		&cli.StringFlag{
			Name:        "title",
			Usage:       "History title (defaults to the prompt)",
			Destination: &title,
		},
		&cli.StringFlag{
			Name:        "continue",
			Usage:       "History item ID of a video session to regenerate",
			Destination: &itemID,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Path of the MP4 file to write",
			Value:       "video.mp4",
			Destination: &output,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "video",
		Usage: "Generate a video from a prompt",
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

			input := video.NewInput{
				Repo:    repo,
				Gemini:  gemini,
				Fetcher: cfg.newFetcher(),
			}
			if itemID != "" {
				id := model.HistoryID(itemID)
				input.ItemID = &id
			}

			session, err := video.New(ctx, input)
			if err != nil {
				return goerr.Wrap(err, "failed to create video session")
			}
			defer session.Close()

			// video jobs run for minutes, keep the user company
			spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			spin.Suffix = " Starting video generation..."
			spin.Start()

			result, err := session.Generate(ctx, video.GenerateInput{
				Prompt:      prompt,
				AspectRatio: aspectRatio,
				Title:       title,
				Progress: func(msg string) {
					spin.Suffix = " " + msg
				},
			})
			spin.Stop()
			if err != nil {
				printFailure(c.Root().Writer, err)
				return goerr.Wrap(err, "video generation failed")
			}

			data, err := media.Decode(result.VideoBase64)
			if err != nil {
				return goerr.Wrap(err, "failed to decode generated video")
			}
			if err := os.WriteFile(output, data, 0600); err != nil {
				return goerr.Wrap(err, "failed to write video file", goerr.V("path", output))
			}

			fmt.Fprintf(c.Root().Writer, "Saved %s (%s)\n", result.Item.ID, result.Item.Title)
			fmt.Fprintf(c.Root().Writer, "Video: %s\n", output)
			return nil
		},
	}
}
