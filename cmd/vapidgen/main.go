// Command vapidgen prints a fresh VAPID key pair for web push.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/urfave/cli/v3"
)

func writeKeys(w io.Writer, subject string) error {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return fmt.Errorf("generate VAPID keys: %w", err)
	}
	fmt.Fprintf(w, "VAPID_PUBLIC_KEY=%s\n", publicKey)
	fmt.Fprintf(w, "VAPID_PRIVATE_KEY=%s\n", privateKey)
	fmt.Fprintf(w, "VAPID_EMAIL=%s\n", subject)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "vapidgen",
		Usage: "Generate VAPID keys in .env format",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "subject",
				Usage: "Contact URI sent with push requests",
				Value: "mailto:admin@example.com",
			},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			return writeKeys(c.Root().Writer, c.String("subject"))
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
