package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"genstudio/pkg/model"
	"genstudio/pkg/usecase/todo"
)

func todoCommand() *cli.Command {
	return &cli.Command{
		Name:  "todo",
		Usage: "Manage todo lists",
		Commands: []*cli.Command{
			todoNewCommand(),
			todoAddCommand(),
			todoDoneCommand(),
			todoEditCommand(),
			todoRemoveCommand(),
			todoShowCommand(),
		},
	}
}

func todoNewCommand() *cli.Command {
	var (
		cfg   config
		title string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "title",
			Usage:       "List title",
			Value:       "Todo",
			Destination: &title,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "new",
		Usage: "Create a new todo list",
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

			session, err := todo.Create(ctx, repo, title)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Created list %s\n", session.ItemID())
			return nil
		},
	}
}

// todoSession resolves the list referenced by --list, or the active item
func todoSession(ctx context.Context, cfg *config, listID string) (*todo.Session, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	id := model.HistoryID(listID)
	if listID == "" {
		active, err := repo.ActiveItem(ctx)
		if err != nil {
			return nil, err
		}
		if active == nil {
			return nil, goerr.New("no list selected, pass --list or select one with 'history select'")
		}
		id = active.ID
	}

	return todo.New(ctx, repo, id)
}

func todoListFlag(listID *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "list",
		Aliases:     []string{"l"},
		Usage:       "History item ID of the list (defaults to the selected item)",
		Destination: listID,
	}
}

func todoAddCommand() *cli.Command {
	var (
		cfg    config
		listID string
	)

	flags := append([]cli.Flag{todoListFlag(&listID)}, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "add",
		Usage:     "Add a task",
		ArgsUsage: "<text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}
			if c.Args().Len() == 0 {
				return goerr.New("task text is required")
			}

			session, err := todoSession(ctx, &cfg, listID)
			if err != nil {
				return err
			}

			task, err := session.Add(ctx, c.Args().First())
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Added %s: %s\n", task.ID, task.Text)
			return nil
		},
	}
}

func todoDoneCommand() *cli.Command {
	var (
		cfg    config
		listID string
	)

	flags := append([]cli.Flag{todoListFlag(&listID)}, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "done",
		Usage:     "Toggle completion of a task",
		ArgsUsage: "<task-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}
			if c.Args().Len() == 0 {
				return goerr.New("task id is required")
			}

			session, err := todoSession(ctx, &cfg, listID)
			if err != nil {
				return err
			}
			return session.Toggle(ctx, c.Args().First())
		},
	}
}

func todoEditCommand() *cli.Command {
	var (
		cfg    config
		listID string
	)

	flags := append([]cli.Flag{todoListFlag(&listID)}, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "edit",
		Usage:     "Rewrite the text of a task",
		ArgsUsage: "<task-id> <text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}
			if c.Args().Len() < 2 {
				return goerr.New("task id and text are required")
			}

			session, err := todoSession(ctx, &cfg, listID)
			if err != nil {
				return err
			}
			return session.Edit(ctx, c.Args().Get(0), c.Args().Get(1))
		},
	}
}

func todoRemoveCommand() *cli.Command {
	var (
		cfg    config
		listID string
	)

	flags := append([]cli.Flag{todoListFlag(&listID)}, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "rm",
		Usage:     "Remove a task",
		ArgsUsage: "<task-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}
			if c.Args().Len() == 0 {
				return goerr.New("task id is required")
			}

			session, err := todoSession(ctx, &cfg, listID)
			if err != nil {
				return err
			}
			return session.Remove(ctx, c.Args().First())
		},
	}
}

func todoShowCommand() *cli.Command {
	var (
		cfg    config
		listID string
	)

	flags := append([]cli.Flag{todoListFlag(&listID)}, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show the tasks in a list",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			session, err := todoSession(ctx, &cfg, listID)
			if err != nil {
				return err
			}

			tasks, err := session.Tasks(ctx)
			if err != nil {
				return err
			}
			printTasks(c.Root().Writer, tasks)
			return nil
		},
	}
}

func printTasks(w io.Writer, tasks []*model.TodoItem) {
	for _, task := range tasks {
		mark := " "
		if task.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s  %s\n", mark, task.ID, task.Text)
	}
}
