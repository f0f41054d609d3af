// dashboard signs in to a consultdesk server and prints the dashboard
// figures: headline counts, tickets per month, projects per client and the
// most recent tickets.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/sumire/consultdesk/internal/apiclient"
	"github.com/sumire/consultdesk/internal/dashboard"
	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/logging"
)

type options struct {
	server   string
	email    string
	password string
	search   string
	top      int
	timeout  time.Duration
	asJSON   bool
	logLevel string
}

func main() {
	err := run()
	code := exitCode(err)
	switch code {
	case 0:
		return
	case exitInterrupted:
		fmt.Fprintln(os.Stderr, "canceled")
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(code)
}

const exitInterrupted = 130

// exitCode maps a run error to the process status. Only an interrupt is
// reported as 130; a --timeout deadline is an ordinary failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return 1
	}
}

func run() error {
	_ = godotenv.Load()

	var opts options
	flagSet := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
	flagSet.StringVar(&opts.server, "server", envOr("CONSULTDESK_URL", "http://localhost:8080"), "consultdesk server URL")
	flagSet.StringVarP(&opts.email, "email", "e", os.Getenv("CONSULTDESK_EMAIL"), "account email")
	flagSet.StringVar(&opts.password, "password", "", "account password (default $CONSULTDESK_PASSWORD)")
	flagSet.StringVarP(&opts.search, "search", "s", "", "only list recent tickets whose title or description matches")
	flagSet.IntVar(&opts.top, "top", dashboard.DefaultTopClients, "clients shown before the rest are grouped as Other")
	flagSet.DurationVar(&opts.timeout, "timeout", 30*time.Second, "give up after this long")
	flagSet.BoolVar(&opts.asJSON, "json", false, "print JSON instead of tables")
	flagSet.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.password == "" {
		opts.password = os.Getenv("CONSULTDESK_PASSWORD")
	}
	if opts.email == "" || opts.password == "" {
		return errors.New("--email and a password are required")
	}

	logger := logging.New(logging.Config{
		Service: "consultdesk-dashboard",
		Version: envOr("APP_VERSION", "dev"),
		Env:     envOr("APP_ENV", "production"),
		Level:   opts.logLevel,
		Format:  "text",
		Output:  os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	ctx = logging.WithContext(ctx, logger)

	session := dashboard.NewSession()
	client := apiclient.New(opts.server, session)

	auth, err := client.Login(ctx, opts.email, opts.password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	session.SignIn(auth)
	defer session.Invalidate()

	snap, err := dashboard.NewLoader(client, session).Load(ctx)
	if err != nil {
		return err
	}

	report := buildReport(snap, opts)
	if opts.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(os.Stdout, report)
}

type report struct {
	Summary           dashboard.Summary       `json:"summary"`
	TicketsPerMonth   []dashboard.MonthCount  `json:"ticketsPerMonth"`
	ProjectsPerClient []dashboard.ClientShare `json:"projectsPerClient"`
	Tickets           []domain.TicketListItem `json:"tickets"`
}

func buildReport(snap *dashboard.Snapshot, opts options) report {
	summary := dashboard.Summarize(snap)
	tickets := summary.Recent
	if opts.search != "" {
		tickets = dashboard.FilterTickets(snap.Tickets, opts.search)
	}
	return report{
		Summary:           summary,
		TicketsPerMonth:   dashboard.TicketsPerMonth(snap.Tickets),
		ProjectsPerClient: dashboard.ProjectsPerClient(snap.Projects, snap.Clients, opts.top),
		Tickets:           tickets,
	}
}

func printReport(out io.Writer, r report) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	s := r.Summary
	fmt.Fprintf(w, "Clients\t%d\n", s.Clients)
	fmt.Fprintf(w, "Projects\t%d\n", s.Projects)
	fmt.Fprintf(w, "Tickets\t%d\n", s.Tickets)
	fmt.Fprintf(w, "Open tickets\t%d%%\t(%d/%d)\n", s.OpenPercent, s.OpenTickets, s.Tickets)

	fmt.Fprintln(w, "\nTICKETS PER MONTH\t")
	for _, m := range r.TicketsPerMonth {
		fmt.Fprintf(w, "%s\t%d\n", m.Label, m.Count)
	}

	fmt.Fprintln(w, "\nPROJECTS PER CLIENT\t")
	for _, c := range r.ProjectsPerClient {
		fmt.Fprintf(w, "%s\t%d\n", c.Name, c.Count)
	}

	fmt.Fprintln(w, "\nTITLE\tCLIENT\tPROJECT\tSTATUS")
	for _, t := range r.Tickets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Title, orDash(t.Project.Client.Name), orDash(t.Project.Title), t.Status)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
