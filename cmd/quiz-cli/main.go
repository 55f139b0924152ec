package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"quiz-engine/internal/cli"
	"quiz-engine/internal/constants"
	"quiz-engine/internal/questionset"
	"quiz-engine/internal/repository"
	"quiz-engine/pkg/database"
)

func main() {
	setID := flag.String("set", constants.DefaultSetID, "question set id")
	setsDir := flag.String("sets-dir", "", "directory of <id>.json question sets")
	historyPath := flag.String("history", "", "SQLite file to record finished attempts in")
	player := flag.String("player", "local", "player id recorded with history")
	list := flag.Bool("list", false, "list available question sets and exit")
	flag.Parse()

	if err := run(*setID, *setsDir, *historyPath, *player, *list); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(setID, setsDir, historyPath, player string, list bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builtin, err := questionset.NewBuiltinProvider()
	if err != nil {
		return err
	}
	providers := []questionset.Provider{builtin}
	if setsDir != "" {
		providers = append([]questionset.Provider{questionset.NewFileProvider(setsDir)}, providers...)
	}
	provider := questionset.NewChainProvider(providers...)

	if list {
		infos, err := provider.ListSets(ctx)
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Printf("%-24s %3d questions  %s\n", info.ID, info.QuestionCount, info.Title)
		}
		return nil
	}

	set, err := provider.GetSet(ctx, setID)
	if err != nil {
		return fmt.Errorf("failed to load question set %s: %w", setID, err)
	}

	opts := cli.Options{PlayerID: player}
	if historyPath != "" {
		client, err := database.NewSQLiteClient(historyPath)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.InitSchema(ctx); err != nil {
			return err
		}
		opts.Results = repository.NewResultRepository(client)
	}

	return cli.Run(ctx, set, os.Stdin, os.Stdout, opts)
}
