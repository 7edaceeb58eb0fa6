package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/wallpaperverse/api/internal/auth"
)

// AdminTokenCommand generates a random admin bearer token and the bcrypt hash
// to put in ADMIN_TOKEN_HASH.
type AdminTokenCommand struct {
	Cost int

	out io.Writer
}

func NewAdminTokenCommand(out io.Writer) *AdminTokenCommand {
	return &AdminTokenCommand{out: out}
}

func (cmd *AdminTokenCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("admin-token", flag.ContinueOnError)

	fs.IntVar(&cmd.Cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s admin-token [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate an admin API token. The token is printed once; store only the hash.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Cost < bcrypt.MinCost || cmd.Cost > bcrypt.MaxCost {
		return fmt.Errorf("-cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

func (cmd *AdminTokenCommand) Run() error {
	token, hash, err := auth.GenerateToken(cmd.Cost)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	fmt.Fprintf(cmd.out, "Token: %s\n", token)
	fmt.Fprintf(cmd.out, "ADMIN_TOKEN_HASH='%s'\n", hash)
	fmt.Fprintln(cmd.out, "\nSend the token as 'Authorization: Bearer <token>'.")
	return nil
}
