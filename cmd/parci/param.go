package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/jeramey/parci"
	"github.com/jeramey/parci/internal/params/local"
)

const paramUsage = `usage: parci param COMMAND

Commands:
  init              initialize the local parameter database
  register-keyring  register encryption keys in the OS keyring
  register-yubikey  register encryption with a YubiKey [--slot N]
  get NAME          get a parameter
  set NAME [VALUE]  set a parameter (VALUE of "-" or absent reads stdin)
  rm NAME           remove a parameter
  list              list parameter names
`

func cmdParam(args []string) error {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, paramUsage)
		os.Exit(2)
	}
	ctx := context.Background()
	sess := parci.NewSession()

	switch args[0] {
	case "init":
		return local.Init(ctx, sess)

	case "register-keyring":
		return local.RegisterKeyring(ctx, sess)

	case "register-yubikey":
		fs := flag.NewFlagSet("register-yubikey", flag.ExitOnError)
		slot := fs.Int("slot", 2, "challenge-response slot")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		sess.Slot = *slot
		return local.RegisterYubiKey(ctx, sess)

	case "get":
		if len(args) != 2 {
			return fmt.Errorf("param get: exactly one name required")
		}
		store, err := parci.OpenParameterStore(sess)
		if err != nil {
			return err
		}
		value, err := store.Get(ctx, args[1])
		if err != nil {
			return err
		}
		out, err := json.Marshal(value)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil

	case "set":
		fs := flag.NewFlagSet("set", flag.ExitOnError)
		asJSON := fs.Bool("json", false, "parse the given secret as JSON before storing")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		rest := fs.Args()
		if len(rest) < 1 || len(rest) > 2 {
			return fmt.Errorf("param set: NAME [VALUE] required")
		}
		raw := ""
		if len(rest) == 2 && rest[1] != "-" {
			raw = rest[1]
		} else {
			if term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprintln(os.Stderr, "Tell me your secrets (type ^D when done)...")
			}
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			raw = string(data)
		}

		var value any = raw
		if *asJSON {
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				return fmt.Errorf("parse secret as JSON: %w", err)
			}
		}

		sess.ReadOnly = false
		store, err := parci.OpenParameterStore(sess)
		if err != nil {
			return err
		}
		return store.Set(ctx, rest[0], value)

	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("param rm: exactly one name required")
		}
		sess.ReadOnly = false
		store, err := parci.OpenParameterStore(sess)
		if err != nil {
			return err
		}
		return store.Delete(ctx, args[1])

	case "list":
		store, err := parci.OpenParameterStore(sess)
		if err != nil {
			return err
		}
		keys, err := store.Keys(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil

	default:
		fmt.Fprintf(os.Stderr, "parci param: unknown command %q\n\n%s", args[0], paramUsage)
		os.Exit(2)
		return nil
	}
}
