// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/strata/cmd/strata/cli"
	"github.com/bureau-foundation/strata/lib/strata"
	"github.com/bureau-foundation/strata/lib/version"
)

// record is how the CLI sees stored records: whatever fields they
// hold, decoded generically.
type record = map[string]any

func rootCommand(ctx context.Context, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "strata",
		Summary:     "Strata database client",
		Description: "Run commands against a Strata database.",
		Subcommands: []*cli.Command{
			useCommand(ctx, out),
			infoCommand(ctx, out),
			healthCommand(ctx, out),
			versionCommand(ctx, out),
			selectCommand(ctx, out),
			createCommand(ctx, out),
			upsertCommand(ctx, out),
			deleteCommand(ctx, out),
			setCommand(ctx, out),
			unsetCommand(ctx, out),
			invalidateCommand(ctx, out),
		},
	}
}

// databaseCommand builds a command that connects with the shared
// connection flags, checks its positional arguments, and hands the
// connection to run. extraFlags may be nil.
func databaseCommand(
	ctx context.Context,
	command *cli.Command,
	minArgs, maxArgs int,
	extraFlags func(*pflag.FlagSet),
	run func(conn *connected, params *connectionParams, args []string) error,
) *cli.Command {
	var params connectionParams
	command.Flags = func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet(command.Name, pflag.ContinueOnError)
		params.addFlags(flagSet)
		if extraFlags != nil {
			extraFlags(flagSet)
		}
		return flagSet
	}
	command.Run = func(args []string) error {
		if err := cli.RequireArgs(command.Name, args, minArgs, maxArgs); err != nil {
			return err
		}
		conn, err := params.open(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		return run(conn, &params, args)
	}
	return command
}

func writeValue(out io.Writer, params *connectionParams, value any) error {
	if params.json {
		return cli.WriteJSON(out, value)
	}
	return cli.WriteJSONLine(out, value)
}

func sessionView(info strata.SessionInfo) map[string]string {
	return map[string]string{
		"session":   info.Session,
		"namespace": info.Namespace,
		"database":  info.Database,
	}
}

func printSession(out io.Writer, params *connectionParams, info strata.SessionInfo) error {
	if params.json {
		return cli.WriteJSON(out, sessionView(info))
	}
	fmt.Fprintf(out, "session:   %s\n", info.Session)
	fmt.Fprintf(out, "namespace: %s\n", info.Namespace)
	fmt.Fprintf(out, "database:  %s\n", info.Database)
	return nil
}

func useCommand(ctx context.Context, out io.Writer) *cli.Command {
	return databaseCommand(ctx, &cli.Command{
		Name:    "use",
		Summary: "Select a namespace, database or session and show the result",
		Description: `Apply --namespace, --database and --session, then print the session
context. Unset flags leave the corresponding selection unchanged.`,
		Usage: "strata use [flags]",
		Examples: []cli.Example{
			{Description: "Join a session held open by another client", Command: "strata use --session 0190c7c8-... --database app"},
		},
	}, 0, 0, nil, func(conn *connected, params *connectionParams, args []string) error {
		info, err := conn.db.Info().Exec(conn.ctx)
		if err != nil {
			return err
		}
		return printSession(out, params, info)
	})
}

func infoCommand(ctx context.Context, out io.Writer) *cli.Command {
	return databaseCommand(ctx, &cli.Command{
		Name:    "info",
		Summary: "Show the session context",
		Usage:   "strata info [flags]",
	}, 0, 0, nil, func(conn *connected, params *connectionParams, args []string) error {
		info, err := conn.db.Info().Exec(conn.ctx)
		if err != nil {
			return err
		}
		return printSession(out, params, info)
	})
}

func healthCommand(ctx context.Context, out io.Writer) *cli.Command {
	return databaseCommand(ctx, &cli.Command{
		Name:    "health",
		Summary: "Check that the database answers",
		Description: `Send a health check. Prints "ok" and exits 0 when the backend
answers, otherwise prints the failure and exits 1.`,
		Usage: "strata health [flags]",
	}, 0, 0, nil, func(conn *connected, params *connectionParams, args []string) error {
		if _, err := conn.db.Health().Exec(conn.ctx); err != nil {
			fmt.Fprintf(out, "unhealthy: %v\n", err)
			return &cli.ExitError{Code: 1}
		}
		fmt.Fprintln(out, "ok")
		return nil
	})
}

func versionCommand(ctx context.Context, out io.Writer) *cli.Command {
	var params connectionParams
	var clientOnly bool
	command := &cli.Command{
		Name:    "version",
		Summary: "Print client and server versions",
		Usage:   "strata version [flags]",
	}
	command.Flags = func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
		params.addFlags(flagSet)
		flagSet.BoolVar(&clientOnly, "client", false, "print only the client version")
		return flagSet
	}
	command.Run = func(args []string) error {
		if err := cli.RequireArgs("version", args, 0, 0); err != nil {
			return err
		}
		version.Fprint(out, "strata")
		if clientOnly {
			return nil
		}
		conn, err := params.open(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		serverVersion, err := conn.db.Version().Exec(conn.ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "server %s\n", serverVersion)
		return nil
	}
	return command
}

func selectCommand(ctx context.Context, out io.Writer) *cli.Command {
	return databaseCommand(ctx, &cli.Command{
		Name:    "select",
		Summary: "Read all records of a table, or one by id",
		Description: `Print the records of a table, one JSON object per line, in id order.
With an id, print only that record; a missing record is an error.
With --json, print a single indented array.`,
		Usage: "strata select <table> [id] [flags]",
		Examples: []cli.Example{
			{Description: "Every person", Command: "strata select person -n test -d test"},
			{Description: "One person", Command: "strata select person tobie -n test -d test"},
		},
	}, 1, 2, nil, func(conn *connected, params *connectionParams, args []string) error {
		query := strata.Select[record](conn.db, args[0])
		if len(args) == 2 {
			query = query.WithID(args[1])
		}
		records, err := query.Exec(conn.ctx)
		if err != nil {
			return err
		}
		if params.json {
			return cli.WriteJSON(out, records)
		}
		for _, item := range records {
			if err := cli.WriteJSONLine(out, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func createCommand(ctx context.Context, out io.Writer) *cli.Command {
	var id string
	return databaseCommand(ctx, &cli.Command{
		Name:    "create",
		Summary: "Create a record",
		Description: `Create a record from a JSON object (comments and trailing commas
allowed). The id comes from --id, else from the object's "id" field,
else a new time-ordered UUID. Creating an existing id is an error.`,
		Usage: "strata create <table> [content] [flags]",
		Examples: []cli.Example{
			{Command: `strata create person '{"name": "Tobie"}' --id tobie -n test -d test`},
		},
	}, 1, 2, func(flagSet *pflag.FlagSet) {
		flagSet.StringVar(&id, "id", "", "record id")
	}, func(conn *connected, params *connectionParams, args []string) error {
		content := record{}
		if len(args) == 2 {
			parsed, err := cli.ParseObject(args[1])
			if err != nil {
				return err
			}
			content = parsed
		}
		builder := strata.Create[record](conn.db, args[0]).Content(content)
		if id != "" {
			builder = builder.WithID(id)
		}
		created, err := builder.Exec(conn.ctx)
		if err != nil {
			return err
		}
		return writeValue(out, params, created)
	})
}

func upsertCommand(ctx context.Context, out io.Writer) *cli.Command {
	return databaseCommand(ctx, &cli.Command{
		Name:    "upsert",
		Summary: "Create or replace a record",
		Usage:   "strata upsert <table> <id> <content> [flags]",
		Examples: []cli.Example{
			{Command: `strata upsert person tobie '{"name": "Tobie", "admin": true}' -n test -d test`},
		},
	}, 3, 3, nil, func(conn *connected, params *connectionParams, args []string) error {
		content, err := cli.ParseObject(args[2])
		if err != nil {
			return err
		}
		stored, err := strata.Upsert[record](conn.db, args[0], args[1]).Content(content).Exec(conn.ctx)
		if err != nil {
			return err
		}
		return writeValue(out, params, stored)
	})
}

func deleteCommand(ctx context.Context, out io.Writer) *cli.Command {
	return databaseCommand(ctx, &cli.Command{
		Name:    "delete",
		Summary: "Delete one record, or every record of a table",
		Usage:   "strata delete <table> [id] [flags]",
	}, 1, 2, nil, func(conn *connected, params *connectionParams, args []string) error {
		builder := strata.Delete(conn.db, args[0])
		if len(args) == 2 {
			builder = builder.WithID(args[1])
		}
		removed, err := builder.Exec(conn.ctx)
		if err != nil {
			return err
		}
		if params.json {
			return cli.WriteJSON(out, map[string]int{"deleted": removed})
		}
		fmt.Fprintf(out, "deleted %d\n", removed)
		return nil
	})
}

func setCommand(ctx context.Context, out io.Writer) *cli.Command {
	return databaseCommand(ctx, &cli.Command{
		Name:    "set",
		Summary: "Set a session variable",
		Description: `Set a session variable to a JSON value. Variables live as long as the
session, so this is useful with --session on a session another client
holds open.`,
		Usage: "strata set <key> <value> [flags]",
		Examples: []cli.Example{
			{Command: `strata set theme '"dark"' --session 0190c7c8-...`},
		},
	}, 2, 2, nil, func(conn *connected, params *connectionParams, args []string) error {
		value, err := cli.ParseValue(args[1])
		if err != nil {
			return err
		}
		_, err = conn.db.Set(args[0], value).Exec(conn.ctx)
		return err
	})
}

func unsetCommand(ctx context.Context, out io.Writer) *cli.Command {
	return databaseCommand(ctx, &cli.Command{
		Name:    "unset",
		Summary: "Remove a session variable",
		Usage:   "strata unset <key> [flags]",
	}, 1, 1, nil, func(conn *connected, params *connectionParams, args []string) error {
		_, err := conn.db.Unset(args[0]).Exec(conn.ctx)
		return err
	})
}

func invalidateCommand(ctx context.Context, out io.Writer) *cli.Command {
	return databaseCommand(ctx, &cli.Command{
		Name:    "invalidate",
		Summary: "Clear the session's namespace, database and variables",
		Usage:   "strata invalidate [flags]",
	}, 0, 0, nil, func(conn *connected, params *connectionParams, args []string) error {
		_, err := conn.db.Invalidate().Exec(conn.ctx)
		return err
	})
}
