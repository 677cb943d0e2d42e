// Command hrds is the terminal flavor of the population registry admin
// tool. It signs in against the registry, keeps the session credential on
// disk, and mirrors the registry's record collection for listing and
// optimistic editing.
//
// Usage:
//
//	hrds login -u <username> -p <password>   demo account sign-in (offline)
//	hrds google-login -assertion <jwt>       exchange a Google ID token
//	hrds whoami                              revalidate and print the session
//	hrds list                                print all records
//	hrds stats                               summarize the collection
//	hrds add [record flags]                  create a record
//	hrds update -id <id> [record flags]      replace a record
//	hrds remove -id <id>                     delete a record
//	hrds logout                              clear the stored credential
//
// Exit codes: 0 = success, 1 = error, 2 = usage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/harunwdi/hrds/internal/app"
	"github.com/harunwdi/hrds/internal/config"
	"github.com/harunwdi/hrds/internal/domain"
	"github.com/harunwdi/hrds/internal/registry"
	"github.com/harunwdi/hrds/internal/repository"
	"github.com/harunwdi/hrds/internal/session"
	"github.com/harunwdi/hrds/internal/tokenstore"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ValidateClient(); err != nil {
		log.Fatalf("invalid client config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	cli, err := newCLI(cfg, logger)
	if err != nil {
		logger.Error("startup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := cli.run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hrds <login|google-login|whoami|list|stats|add|update|remove|logout> [flags]")
}

// cli bundles the client core: token store, registry client, session
// manager, and record repository.
type cli struct {
	tokens  *tokenstore.FileStore
	client  *registry.Client
	session *session.Manager
	repo    *repository.Repository
}

func newCLI(cfg *config.Config, logger *slog.Logger) (*cli, error) {
	path := cfg.Client.CredentialsPath
	if path == "" {
		var err error
		path, err = tokenstore.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve credentials path: %w", err)
		}
	}

	tokens, err := tokenstore.NewFileStore(path)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	client := registry.NewClient(cfg.Client.ServerURL, tokens, cfg.Client.RequestTimeout, logger)
	manager := session.NewManager(client, tokens, session.DemoAccounts(), logger)
	repo := repository.New(client, manager, logger)

	return &cli{tokens: tokens, client: client, session: manager, repo: repo}, nil
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return c.login(args)
	case "google-login":
		return c.googleLogin(ctx, args)
	case "whoami":
		return c.whoami(ctx)
	case "list":
		return c.list(ctx)
	case "stats":
		return c.stats(ctx)
	case "add":
		return c.add(ctx, args)
	case "update":
		return c.update(ctx, args)
	case "remove":
		return c.remove(ctx, args)
	case "logout":
		c.session.Logout()
		fmt.Println(c.session.Current().StatusMessage)
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) login(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	_ = fs.Parse(args)

	if !c.session.LoginWithPassword(*username, *password) {
		return fmt.Errorf("%s", c.session.Current().StatusMessage)
	}

	id := c.session.Current().Identity
	fmt.Printf("signed in as %s (%s)\n", id.Name, id.Role)
	return nil
}

func (c *cli) googleLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("google-login", flag.ExitOnError)
	assertion := fs.String("assertion", "", "Google ID token")
	assertionFile := fs.String("assertion-file", "", "file containing a Google ID token")
	_ = fs.Parse(args)

	token := *assertion
	if token == "" && *assertionFile != "" {
		data, err := os.ReadFile(*assertionFile)
		if err != nil {
			return fmt.Errorf("read assertion file: %w", err)
		}
		token = string(data)
	}
	if token == "" {
		return fmt.Errorf("one of -assertion or -assertion-file is required")
	}

	if !c.session.LoginWithGoogle(ctx, token) {
		return fmt.Errorf("%s", c.session.Current().StatusMessage)
	}

	s := c.session.Current()
	fmt.Printf("%s — signed in as %s\n", s.StatusMessage, s.Identity.Name)
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	if !c.session.Revalidate(ctx) {
		s := c.session.Current()
		if s.StatusMessage != "" {
			return fmt.Errorf("not signed in: %s", s.StatusMessage)
		}
		return fmt.Errorf("not signed in")
	}

	id := c.session.Current().Identity
	fmt.Printf("%s <%s> role=%s\n", id.Name, id.Subject, id.Role)
	return nil
}

func (c *cli) list(ctx context.Context) error {
	if err := c.repo.LoadSnapshot(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "warning: registry unreachable, showing cached sample data")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPOPULATION ID\tGENDER\tBORN\tBLOOD")
	for _, p := range c.repo.Snapshot() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s %s\t%s\n",
			p.ID, p.FullName, p.PopulationID, p.Gender, p.DateOfBirth, p.PlaceOfBirth, p.BloodType)
	}
	return w.Flush()
}

func (c *cli) stats(ctx context.Context) error {
	if err := c.repo.LoadSnapshot(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "warning: registry unreachable, showing cached sample data")
	}

	records := c.repo.Snapshot()
	byGender := map[domain.Gender]int{}
	byBlood := map[domain.BloodType]int{}
	for _, p := range records {
		byGender[p.Gender]++
		byBlood[p.BloodType]++
	}

	fmt.Printf("records: %d\n", len(records))
	fmt.Printf("gender: male=%d female=%d\n", byGender[domain.GenderMale], byGender[domain.GenderFemale])

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BLOOD\tCOUNT")
	for _, b := range []domain.BloodType{
		domain.BloodTypeAPos, domain.BloodTypeANeg, domain.BloodTypeBPos, domain.BloodTypeBNeg,
		domain.BloodTypeABPos, domain.BloodTypeABNeg, domain.BloodTypeOPos, domain.BloodTypeONeg,
	} {
		if byBlood[b] > 0 {
			fmt.Fprintf(w, "%s\t%d\n", b, byBlood[b])
		}
	}
	return w.Flush()
}

// recordFlags registers the person record fields on fs and returns a
// builder that assembles the draft after parsing.
func recordFlags(fs *flag.FlagSet) func() domain.PersonRecord {
	name := fs.String("name", "", "full name")
	populationID := fs.String("population-id", "", "16-digit population id")
	familyID := fs.String("family-id", "", "16-digit family id")
	gender := fs.String("gender", string(domain.GenderMale), "Male or Female")
	dob := fs.String("dob", "", "date of birth (YYYY-MM-DD)")
	place := fs.String("place", "", "place of birth")
	religion := fs.String("religion", "", "religion")
	blood := fs.String("blood", string(domain.BloodTypeAPos), "blood type (A+, O-, ...)")

	return func() domain.PersonRecord {
		return domain.PersonRecord{
			FullName:     *name,
			PopulationID: *populationID,
			FamilyID:     *familyID,
			Gender:       domain.Gender(*gender),
			DateOfBirth:  *dob,
			PlaceOfBirth: *place,
			Religion:     *religion,
			BloodType:    domain.BloodType(*blood),
		}
	}
}

func (c *cli) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	build := recordFlags(fs)
	_ = fs.Parse(args)

	if err := c.repo.LoadSnapshot(ctx); err != nil {
		return err
	}

	created, err := c.repo.Add(ctx, build())
	if err != nil {
		return err
	}
	fmt.Printf("created %s (%s)\n", created.ID, created.FullName)
	return nil
}

func (c *cli) update(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.String("id", "", "record id")
	build := recordFlags(fs)
	_ = fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	if err := c.repo.LoadSnapshot(ctx); err != nil {
		return err
	}

	updated, err := c.repo.Update(ctx, *id, build())
	if err != nil {
		return err
	}
	fmt.Printf("updated %s (%s)\n", updated.ID, updated.FullName)
	return nil
}

func (c *cli) remove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	id := fs.String("id", "", "record id")
	_ = fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	if err := c.repo.LoadSnapshot(ctx); err != nil {
		return err
	}

	if err := c.repo.Remove(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", *id)
	return nil
}
