package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"genstudio/pkg/model"
	"genstudio/pkg/usecase/history"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Manage stored sessions",
		Commands: []*cli.Command{
			historyListCommand(),
			historyShowCommand(),
			historyRenameCommand(),
			historyDeleteCommand(),
			historySelectCommand(),
		},
	}
}

func historyListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List stored sessions, newest first",
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

			items, err := history.List(ctx, repo)
			if err != nil {
				return goerr.Wrap(err, "failed to list sessions")
			}
			if len(items) == 0 {
				fmt.Fprintf(c.Root().Writer, "No stored sessions\n")
				return nil
			}

			active, err := history.Active(ctx, repo)
			if err != nil {
				return err
			}

			for _, item := range items {
				marker := " "
				if active != nil && active.ID == item.ID {
					marker = "*"
				}
				fmt.Fprintf(c.Root().Writer, "%s %s\t%s\t%s\t%s\n",
					marker,
					item.ID,
					item.Type,
					item.Title,
					item.UpdatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return nil
		},
	}
}

func historyShowCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "show",
		Usage:     "Show one session, rebuilding its media files",
		ArgsUsage: "<item-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}
			if c.Args().Len() == 0 {
				return goerr.New("item id is required")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			opened, err := history.Open(ctx, repo, model.HistoryID(c.Args().First()))
			if err != nil {
				return goerr.Wrap(err, "failed to open session")
			}
			defer opened.Release()

			raw, err := json.MarshalIndent(summarize(opened.Item), "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to render session")
			}
			fmt.Fprintf(c.Root().Writer, "%s\n", raw)

			if opened.Audio != nil {
				fmt.Fprintf(c.Root().Writer, "Audio: %s\n", opened.Audio.Path())
			}
			if opened.Video != nil {
				fmt.Fprintf(c.Root().Writer, "Video: %s\n", opened.Video.Path())
			}
			return nil
		},
	}
}

// summarize strips bulky encodings out of an item for terminal display
func summarize(item *model.HistoryItem) map[string]any {
	out := map[string]any{
		"id":        item.ID,
		"type":      item.Type,
		"title":     item.Title,
		"createdAt": item.CreatedAt,
		"updatedAt": item.UpdatedAt,
	}

	switch item.Type {
	case model.ToolChat:
		out["messages"] = item.Chat.Messages
		out["studyMode"] = item.Chat.StudyMode
		out["researchMode"] = item.Chat.ResearchMode
	case model.ToolVoice:
		out["text"] = item.Voice.Text
		out["voice"] = item.Voice.Voice
		out["speed"] = item.Voice.Speed
	case model.ToolImage:
		out["prompt"] = item.Image.Prompt
		out["aspectRatio"] = item.Image.AspectRatio
	case model.ToolVideo:
		out["prompt"] = item.Video.Prompt
		out["aspectRatio"] = item.Video.AspectRatio
	case model.ToolTodo:
		out["tasks"] = item.Todo.Tasks
	}
	return out
}

func historyRenameCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "rename",
		Usage:     "Change the title of a session",
		ArgsUsage: "<item-id> <title>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}
			if c.Args().Len() < 2 {
				return goerr.New("item id and title are required")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			return history.Rename(ctx, repo, model.HistoryID(c.Args().Get(0)), c.Args().Get(1))
		},
	}
}

func historyDeleteCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a session permanently",
		ArgsUsage: "<item-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}
			if c.Args().Len() == 0 {
				return goerr.New("item id is required")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			return history.Delete(ctx, repo, model.HistoryID(c.Args().First()))
		},
	}
}

func historySelectCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "select",
		Usage:     "Mark a session as the active one",
		ArgsUsage: "<item-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}
			if c.Args().Len() == 0 {
				return goerr.New("item id is required")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			item, err := history.Select(ctx, repo, model.HistoryID(c.Args().First()))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "Selected %s (%s)\n", item.ID, item.Title)
			return nil
		},
	}
}
