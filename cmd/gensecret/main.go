package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

const (
	defaultSecretKeyBytesLen = 32
	minSecretKeyBytesLen     = 16
)

// Prints random hex secret to use as SECRET_KEY
func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("gensecret", pflag.ContinueOnError)
	n := fs.IntP("bytes", "b", defaultSecretKeyBytesLen, "Secret length in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *n < minSecretKeyBytesLen {
		return fmt.Errorf("secret must be at least %d bytes long", minSecretKeyBytesLen)
	}

	b := make([]byte, *n)
	if _, err := rand.Read(b); err != nil {
		return errors.Join(errors.New("random source failed"), err)
	}

	_, err := fmt.Fprintln(out, hex.EncodeToString(b))
	return err
}
