// cmd/cli/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/storage"
)

const usage = `usage: cli [-db path] <command> [args]

commands:
  playlists          list stored playlists
  show <name>        print the tracks of a playlist
  delete <name>      delete a playlist
  history <guild>    print the last commands run in a guild
`

var errUsage = errors.New("invalid usage")

func main() {
	dbPath := flag.String("db", "jukebox.db", "SQLite database of the bot")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	store, err := storage.New(*dbPath, 0, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open storage")
	}
	defer store.Close()

	if err := run(context.Background(), store, flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		fmt.Fprintln(os.Stderr, err)
		store.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, store *storage.Storage, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch cmd, rest := args[0], args[1:]; {
	case cmd == "playlists" && len(rest) == 0:
		all, err := store.List(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "NAME\tTRACKS\tCREATED")
		for _, p := range all {
			fmt.Fprintf(w, "%s\t%d\t%s\n", p.Name, p.Tracks, p.CreatedAt.Format("2006-01-02 15:04"))
		}
	case cmd == "show" && len(rest) == 1:
		tracks, err := store.Load(ctx, rest[0])
		if err != nil {
			return err
		}
		for i, t := range tracks {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, t.Title, t.FormattedDuration(), t.URL)
		}
	case cmd == "delete" && len(rest) == 1:
		if err := store.Delete(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(w, "deleted %s\n", rest[0])
	case cmd == "history" && len(rest) == 1:
		records, err := store.FetchCommandHistory(ctx, rest[0])
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s %s\n", r.Datetime.Format("2006-01-02 15:04:05"), r.Username, r.Command, r.Param)
		}
	default:
		return errUsage
	}
	return nil
}
