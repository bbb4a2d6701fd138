package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "genstudio",
		Usage: "Generative AI studio: chat, voice, image, video and todo tools",
		Commands: []*cli.Command{
			chatCommand(),
			voiceCommand(),
			imageCommand(),
			videoCommand(),
			todoCommand(),
			historyCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
