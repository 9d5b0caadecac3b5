// Command sasign manages the SDK's persisted settings. Its configure
// subcommand stores the API subscription key in the settings file so every
// process using the SDK picks it up.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/geoblob/sasign/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "configure":
		if err := configure(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func configure(args []string) error {
	flags := pflag.NewFlagSet("configure", pflag.ContinueOnError)
	key := flags.String("subscription-key", "", "API subscription key to persist")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *key == "" {
		return fmt.Errorf("--subscription-key is required")
	}

	path, err := config.SaveSubscriptionKey(*key)
	if err != nil {
		return err
	}

	fmt.Printf("subscription key written to %s\n", path)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sasign configure --subscription-key <key>")
}
