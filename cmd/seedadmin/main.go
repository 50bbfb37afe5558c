// Command seedadmin creates an account directly in the data directory.
//
// It is used to bootstrap the first administrator, since the API only lets
// administrators manage other accounts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/maruel/myaccount/internal/config"
	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/storage"
	"golang.org/x/term"
)

// firstAccountID is the id of the first account of an empty data directory.
const firstAccountID = 1000

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "seedadmin: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	dataDir := flag.String("data-dir", "./data", "Data directory")
	username := flag.String("username", "", "Account username")
	email := flag.String("email", "", "Account email")
	password := flag.String("password", "", "Account password; prompted when empty")
	role := flag.String("role", string(models.RoleAdmin), "Account role (admin, user)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}
	if *username == "" || *email == "" {
		return errors.New("-username and -email are required")
	}
	r := models.Role(*role)
	if !r.Valid() {
		return fmt.Errorf("invalid role %q", *role)
	}
	if *password == "" {
		p, err := promptPassword(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		*password = p
	}

	cfg, err := config.Load(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", config.FileName, err)
	}
	fs, err := storage.NewFileStore(*dataDir, cfg.StorageOptions())
	if err != nil {
		return err
	}
	a, err := seed(context.Background(), fs, *username, *email, *password, r)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s %q with id %d\n", a.Role, a.Username, a.ID)
	return nil
}

// seed registers the account and records it in the audit log.
func seed(ctx context.Context, fs *storage.FileStore, username, email, password string, role models.Role) (*models.Account, error) {
	fs.Accounts.FirstID = firstAccountID
	a, err := fs.Register(ctx, username, email, password, role)
	if err != nil {
		return nil, err
	}
	e := &models.AuditEntry{
		AdminID:      a.ID,
		Action:       models.ActionCreateUser,
		TargetUserID: a.ID,
		Details:      fmt.Sprintf("seeded %s account %s", role, username),
	}
	if err := fs.Audit.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to record audit entry: %w", err)
	}
	return a, nil
}

// promptPassword reads the password twice without echo when in is a
// terminal, or a single line otherwise.
func promptPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd()) //nolint:gosec // G115: file descriptors fit in an int
	if !term.IsTerminal(fd) {
		b, err := io.ReadAll(io.LimitReader(in, 1024))
		if err != nil {
			return "", err
		}
		p, _, _ := strings.Cut(string(b), "\n")
		return strings.TrimRight(p, "\r"), nil
	}
	_, _ = fmt.Fprint(out, "Password: ")
	p1, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	_, _ = fmt.Fprint(out, "Confirm password: ")
	p2, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(p1) != string(p2) {
		return "", errors.New("passwords do not match")
	}
	return string(p1), nil
}
