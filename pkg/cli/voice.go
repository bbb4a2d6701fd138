package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"genstudio/pkg/model"
	"genstudio/pkg/usecase/voice"
)

func voiceCommand() *cli.Command {
	var (
		cfg       config
		text      string
		voiceName string
		speed     float64
		title     string
		itemID    string
		output    string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "text",
			Aliases:     []string{"t"},
			Usage:       "Text to read aloud",
			Required:    true,
			Destination: &text,
		},
		&cli.StringFlag{
			Name:        "voice",
			Usage:       "Voice name",
			Value:       "Zephyr",
			Destination: &voiceName,
		},
		&cli.FloatFlag{
			Name:        "speed",
			Usage:       "Speech speed (0.5 to 1.5)",
			Value:       1.0,
			Destination: &speed,
		},
		&cli.StringFlag{
			Name:        "title",
			Usage:       "History title (defaults to the text)",
			Destination: &title,
		},
		&cli.StringFlag{
			Name:        "continue",
			Usage:       "History item ID of a voice session to regenerate",
			Destination: &itemID,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Path of the WAV file to write",
			Value:       "voice.wav",
			Destination: &output,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "voice",
		Usage: "Read text aloud with a generated voice",
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

			input := voice.NewInput{Repo: repo, Gemini: gemini}
			if itemID != "" {
				id := model.HistoryID(itemID)
				input.ItemID = &id
			}

			session, err := voice.New(ctx, input)
			if err != nil {
				return goerr.Wrap(err, "failed to create voice session")
			}
			defer session.Close()

			result, err := session.Generate(ctx, voice.GenerateInput{
				Text:  text,
				Voice: voiceName,
				Speed: speed,
				Title: title,
			})
			if err != nil {
				printFailure(c.Root().Writer, err)
				return goerr.Wrap(err, "voice generation failed")
			}

			wav, err := os.ReadFile(result.Playback.Path())
			if err != nil {
				return goerr.Wrap(err, "failed to read rendered audio")
			}
			if err := os.WriteFile(output, wav, 0600); err != nil {
				return goerr.Wrap(err, "failed to write audio file", goerr.V("path", output))
			}

			fmt.Fprintf(c.Root().Writer, "Saved %s (%s)\n", result.Item.ID, result.Item.Title)
			fmt.Fprintf(c.Root().Writer, "Audio: %s\n", output)
			return nil
		},
	}
}
