package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"streamplays.tv/internal/persistence/indexdb"
)

type userCount struct {
	User   string `json:"user"`
	Inputs int64  `json:"inputs"`
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/stream.sqlite)")
	user := fs.String("user", "", "user filter (inputs)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "inputs"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "stream.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	db, err := indexdb.OpenDB(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()
	ctx := context.Background()

	switch q {
	case "inputs":
		rows, err := indexdb.QueryInputs(ctx, db, strings.TrimSpace(*user), *limit)
		exitOnErr("query inputs", err)
		for _, r := range rows {
			printJSON(r)
		}
	case "saves":
		rows, err := indexdb.QuerySaves(ctx, db, *limit)
		exitOnErr("query saves", err)
		for _, r := range rows {
			printJSON(r)
		}
	case "sessions":
		rows, err := indexdb.QuerySessions(ctx, db, *limit)
		exitOnErr("query sessions", err)
		for _, r := range rows {
			printJSON(r)
		}
	case "users":
		counts, order, err := indexdb.TopUsers(ctx, db, *limit)
		exitOnErr("query users", err)
		for _, u := range order {
			printJSON(userCount{User: u, Inputs: counts[u]})
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown db query %q (inputs|saves|sessions|users)\n", q)
		os.Exit(2)
	}
}

func exitOnErr(what string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
		os.Exit(1)
	}
}
