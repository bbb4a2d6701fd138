package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"genstudio/pkg/service/mcp"
)

const version = "0.1.0"

func mcpCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the history store to MCP clients over stdio",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			return mcp.NewServer(repo, version).Run(ctx)
		},
	}
}
