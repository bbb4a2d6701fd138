package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"genstudio/pkg/model"
	"genstudio/pkg/usecase"
	"genstudio/pkg/usecase/chat"
)

func chatCommand() *cli.Command {
	var (
		cfg          config
		itemID       string
		studyMode    bool
		researchMode bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "continue",
			Usage:       "History item ID of a conversation to continue",
			Destination: &itemID,
		},
		&cli.BoolFlag{
			Name:        "study",
			Usage:       "Start in study mode (guided tutoring, no direct answers)",
			Destination: &studyMode,
		},
		&cli.BoolFlag{
			Name:        "research",
			Usage:       "Start in research mode (web-grounded answers with sources)",
			Destination: &researchMode,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation",
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

			input := chat.NewInput{
				Repo:         repo,
				Gemini:       gemini,
				StudyMode:    studyMode,
				ResearchMode: researchMode,
			}
			if itemID != "" {
				id := model.HistoryID(itemID)
				input.ItemID = &id
			}

			session, err := chat.New(ctx, input)
			if err != nil {
				return goerr.Wrap(err, "failed to create chat session")
			}
			defer session.Close()

			// replay the transcript when continuing
			for _, msg := range session.Messages() {
				printMessage(c.Root().Writer, msg)
			}

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize input")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Chat started. /study and /research toggle modes, /exit quits.\n")

			for {
				line, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						break
					}
					return goerr.Wrap(err, "failed to read input")
				}

				switch line {
				case "":
					continue
				case "/exit", "exit":
					return nil
				case "/study":
					studyMode = !studyMode
					session.SetStudyMode(studyMode)
					fmt.Fprintf(c.Root().Writer, "study mode: %v\n", studyMode)
					continue
				case "/research":
					researchMode = !researchMode
					session.SetResearchMode(researchMode)
					fmt.Fprintf(c.Root().Writer, "research mode: %v\n", researchMode)
					continue
				}

				reply, err := session.Send(ctx, line)
				if err != nil {
					printFailure(c.Root().Writer, err)
					continue
				}
				printMessage(c.Root().Writer, reply)
			}

			return nil
		},
	}
}

func printMessage(w io.Writer, msg *model.ChatMessage) {
	prefix := ""
	if msg.Role == model.RoleUser {
		prefix = "> "
	}
	fmt.Fprintf(w, "%s%s\n", prefix, msg.Text)
	for _, src := range msg.Sources {
		fmt.Fprintf(w, "  [%s] %s\n", src.Title, src.URI)
	}
}

// printFailure surfaces a generation failure without killing the loop
func printFailure(w io.Writer, err error) {
	var failure *usecase.Failure
	if errors.As(err, &failure) {
		fmt.Fprintf(w, "%s\n", failure.Outcome.Message)
		return
	}
	if errors.Is(err, usecase.ErrRetryPending) {
		fmt.Fprintf(w, "Still rate limited, wait for the countdown to finish.\n")
		return
	}
	if errors.Is(err, usecase.ErrNoCredential) {
		fmt.Fprintf(w, "The configured API key cannot serve this model. Set another key and restart.\n")
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err.Error())
}
