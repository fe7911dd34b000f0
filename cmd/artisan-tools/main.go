// Command artisan-tools is an operator-facing CLI, external to the core
// daemons: it has no business logic the core depends on, only thin
// subcommands that exercise the same collaborators the daemons use.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/credentials"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/cryptoclient"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/hostid"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/platformconfig"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "hostid":
		cmdHostID(os.Args[2:])
	case "credentials":
		cmdCredentials(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: artisan-tools <hostid|credentials> ...")
	fmt.Fprintln(os.Stderr, "  hostid show")
	fmt.Fprintln(os.Stderr, "  credentials edit")
}

func cmdHostID(args []string) {
	fs := flag.NewFlagSet("hostid", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 || fs.Arg(0) != "show" {
		fmt.Fprintln(os.Stderr, "usage: artisan-tools hostid show")
		os.Exit(1)
	}

	id, err := hostid.Get()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Println(id)
}

func cmdCredentials(args []string) {
	fs := flag.NewFlagSet("credentials", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 || fs.Arg(0) != "edit" {
		fmt.Fprintln(os.Stderr, "usage: artisan-tools credentials edit")
		os.Exit(1)
	}

	ctx := context.Background()
	oracle := cryptoclient.New(platformconfig.EnvString("ARTISAN_CRYPTO_SOCKET", platformconfig.DefaultCryptoSocketPath))
	store := credentials.New(platformconfig.EnvString("ARTISAN_CREDENTIALS_PATH", platformconfig.DefaultCredentialsPath), oracle)

	items, err := store.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error loading credentials:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	var edited []credentials.RepoAuth
	dec := json.NewDecoder(os.Stdin)
	if err := dec.Decode(&edited); err != nil {
		fmt.Fprintln(os.Stderr, "no changes applied:", err)
		return
	}

	if err := store.Save(ctx, edited); err != nil {
		fmt.Fprintln(os.Stderr, "error saving credentials:", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "credentials updated")
}
