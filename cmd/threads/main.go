// Command threads is a terminal client for the threads API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"threads/client"
	"threads/logger"

	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

var (
	serverFlag = &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Base URL of the threads API",
		Value:   "http://localhost:5000",
		Sources: cli.EnvVars("THREADS_URL"),
	}
	tokenFlag = &cli.StringFlag{
		Name:    "token",
		Aliases: []string{"t"},
		Usage:   "Session token returned by login",
		Sources: cli.EnvVars("THREADS_TOKEN"),
	}
	userFlag = &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "Username the token belongs to, used to mark own and tagged posts",
		Sources: cli.EnvVars("THREADS_USER"),
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Aliases: []string{"l"},
		Usage:   "The level of the logs",
		Value:   "warn",
		Validator: func(value string) error {
			_, err := logger.ParseLevel(value)
			return err
		},
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "threads",
		Usage:   "Read and manage a threads feed from the terminal",
		Version: version,
		Flags:   []cli.Flag{serverFlag, tokenFlag, userFlag, logLevelFlag},
		Commands: []*cli.Command{
			loginCmd,
			signupCmd,
			feedCmd,
			taggedCmd,
			postCmd,
			deleteCmd,
		},
	}
}

func newClient(c *cli.Command) (*client.Client, error) {
	lvl, err := logger.ParseLevel(c.String(logLevelFlag.Name))
	if err != nil {
		return nil, err
	}
	api := client.New(client.Config{
		BaseURL: c.String(serverFlag.Name),
		Log:     logger.New(os.Stderr, lvl, false),
	})
	api.SetToken(c.String(tokenFlag.Name))
	return api, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
