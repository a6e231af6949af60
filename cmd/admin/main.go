// Command admin creates an administrator account in the configured store.
//
//	admin -username root -email root@example.com [-name "Admin"]
//
// The password is read from the terminal without echo.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/koreamarkers/webauth/internal/core/ports"
	"github.com/koreamarkers/webauth/internal/core/service"
	"github.com/koreamarkers/webauth/internal/infrastructure/config"
	"github.com/koreamarkers/webauth/internal/infrastructure/db"
	"github.com/koreamarkers/webauth/pkg/logger"
)

const minPasswordLen = 6

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "admin: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	username := fs.String("username", "", "admin username (3-50 characters)")
	email := fs.String("email", "", "admin email")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *email == "" {
		fs.Usage()
		return errors.New("-username and -email are required")
	}
	if err := validateAccount(*username, *email); err != nil {
		return err
	}

	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "webauth-admin", Output: os.Stderr})

	password, err := promptPassword(out)
	if err != nil {
		return err
	}

	store, err := db.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close(ctx)

	reg := service.NewRegistrationService(store.Users, log)
	user, err := reg.RegisterAdmin(ctx, ports.SignupInput{
		Username: *username,
		Password: password,
		Email:    *email,
		Name:     *name,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created admin %s (%s)\n", user.Username, user.ID)
	return nil
}

// validateAccount applies the same username and email rules as signup.
func validateAccount(username, email string) error {
	v := validator.New()
	if err := v.Var(username, "required,min=3,max=50"); err != nil {
		return errors.New("username must be 3 to 50 characters")
	}
	if err := v.Var(email, "required,email"); err != nil {
		return fmt.Errorf("email %q is not a valid address", email)
	}
	return nil
}

func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password prompt needs a terminal")
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}

	if !bytes.Equal(first, second) {
		return "", errors.New("passwords do not match")
	}
	if len(strings.TrimSpace(string(first))) < minPasswordLen {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return string(first), nil
}
