package ctl

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/sgics/sgics/internal/logging"
	"github.com/sgics/sgics/internal/server/auth"
	"github.com/sgics/sgics/internal/server/config"
	"github.com/sgics/sgics/internal/server/migrator"
	"github.com/sgics/sgics/internal/server/repositories/repomanager"
	"github.com/sgics/sgics/internal/server/schema"
	"github.com/sgics/sgics/internal/server/services"
	"github.com/urfave/cli/v3"
)

// Runner holds what the commands share. Fields other than out are filled
// lazily so that commands which need no database never open one.
type Runner struct {
	out    io.Writer
	logOut io.Writer

	loadConfig func(path string) (*config.Config, error)
	openDB     func(dsn string) (*sql.DB, error)
	repos      repomanager.RepositoryManager
	prompt     func(w io.Writer) func() ([]byte, error)

	cfg    *config.Config
	logger logging.Logger
}

func NewRunner(out, logOut io.Writer) *Runner {
	return &Runner{
		out:        out,
		logOut:     logOut,
		loadConfig: loadConfig,
		openDB:     func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) },
		repos:      repomanager.NewPostgresRepositoryManager(),
		prompt:     terminalPrompt,
		logger:     logging.Nop{},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load(nil)
	}
	return config.Load([]string{"-c", path})
}

// before loads configuration and the logger for every subcommand.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if dsn := cmd.String("database"); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	r.cfg = cfg
	r.logger = logging.New(r.logOut, "text", cfg.LogLevel)
	return ctx, nil
}

func (r *Runner) connect(ctx context.Context) (*sql.DB, error) {
	db, err := r.openDB(r.cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// MigrateCheck resolves the catalogue and reports every graph problem.
func (r *Runner) MigrateCheck(ctx context.Context, cmd *cli.Command) error {
	m := migrator.New(nil, r.repos, r.logger)
	plan, err := m.Plan()
	if err != nil {
		return fmt.Errorf("migration graph is invalid:\n%w", err)
	}
	r.printf("migration graph OK: %d migrations in %d apps\n", len(plan), countApps(plan))
	return nil
}

// MigratePlan prints the resolved order. Unless --offline is given the
// ledger is read too, so applied state and orphans are shown.
func (r *Runner) MigratePlan(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("offline") {
		plan, err := migrator.New(nil, r.repos, r.logger).Plan()
		if err != nil {
			return err
		}
		for i, m := range plan {
			r.printNode(i, m, "")
		}
		return nil
	}

	db, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := migrator.New(db, r.repos, r.logger).Status(ctx)
	if err != nil {
		return err
	}
	for i, n := range st.Nodes {
		state := "[ ]"
		if n.Applied {
			state = "[X]"
		}
		r.printNode(i, n.Migration, state)
	}
	for _, o := range st.Orphans {
		r.printf("orphan: %s is recorded as applied but is not in the catalogue\n", o)
	}
	r.printf("%d pending\n", len(st.Pending()))
	return nil
}

func (r *Runner) printNode(i int, m schema.Migration, state string) {
	line := fmt.Sprintf("%3d %s %-40s %-11s", i+1, state, m.Key(), m.Kind)
	if m.Note != "" {
		line += " " + m.Note
	}
	r.printf("%s\n", line)
}

// MigrateApply brings the database up to date.
func (r *Runner) MigrateApply(ctx context.Context, cmd *cli.Command) error {
	db, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	done, err := migrator.New(db, r.repos, r.logger).Apply(ctx)
	for _, k := range done {
		r.printf("applied %s\n", k)
	}
	if err != nil {
		return err
	}
	if len(done) == 0 {
		r.printf("no migrations to apply\n")
	}
	return nil
}

// CreateSuperuser creates the initial administrator. Flags override the
// ADMIN_* settings.
func (r *Runner) CreateSuperuser(ctx context.Context, cmd *cli.Command) error {
	req := services.SuperuserRequest{
		Username: r.cfg.AdminUsername,
		Email:    r.cfg.AdminEmail,
		Password: []byte(r.cfg.AdminPassword),
	}
	if v := cmd.String("username"); v != "" {
		req.Username = v
	}
	if v := cmd.String("email"); v != "" {
		req.Email = v
	}

	var prompt services.PasswordPrompt
	if !cmd.Bool("no-input") && r.prompt != nil {
		prompt = r.prompt(r.out)
	}

	db, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	us := services.NewUserService(db, r.repos, auth.BcryptHasher{}, r.cfg, r.logger)
	res, err := us.EnsureSuperuser(ctx, req, r.cfg.IsProduction(), prompt, r.out)
	if err != nil {
		return err
	}
	if res.Created {
		r.printf("superuser %q created\n", req.Username)
	} else {
		r.printf("superuser %q already exists\n", req.Username)
	}
	return nil
}

func countApps(plan []schema.Migration) int {
	apps := make(map[string]struct{})
	for _, m := range plan {
		apps[m.App] = struct{}{}
	}
	return len(apps)
}

// Main runs sgicsctl with os.Args and returns the process exit code.
func Main() int {
	r := NewRunner(os.Stdout, os.Stderr)
	if err := NewCommand(r).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sgicsctl:", err)
		return 1
	}
	return 0
}
