// Command manage runs one-off administrative tasks against the configured database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/app"
	"github.com/mysite19/mysite/internal/database"
	"github.com/mysite19/mysite/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("mysite-manage", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "Path to configuration directory")
	fs.Usage = func() {
		fmt.Fprintln(out, "usage: manage [-config dir] <command> [flags]")
		fmt.Fprintln(out, "commands:")
		for _, cmd := range commands {
			fmt.Fprintf(out, "  %-16s %s\n", cmd.name, cmd.summary)
		}
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	var (
		cfg *app.Config
		err error
	)
	if strings.TrimSpace(*configPath) == "" {
		cfg, err = app.LoadConfig()
	} else {
		cfg, err = app.LoadConfig(*configPath)
	}
	if err != nil {
		return err
	}
	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	db, err := database.Open(cfg.Database.DatabaseSettings())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	return dispatch(ctx, &manageEnv{db: db, out: out, defaultEncoding: cfg.Shop.DefaultEncoding}, fs.Args())
}

// manageEnv is what every command runs against.
type manageEnv struct {
	db              *gorm.DB
	out             io.Writer
	defaultEncoding string
}

func dispatch(ctx context.Context, env *manageEnv, args []string) error {
	name := args[0]
	for _, cmd := range commands {
		if cmd.name == name {
			fs := flag.NewFlagSet(name, flag.ContinueOnError)
			fs.SetOutput(env.out)
			return cmd.run(ctx, env, fs, args[1:])
		}
	}
	return fmt.Errorf("unknown command %q", name)
}
