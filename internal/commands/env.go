package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feeledger-dev/feeledger/internal/auditlog"
	"github.com/feeledger-dev/feeledger/internal/config"
	"github.com/feeledger-dev/feeledger/internal/gitops"
	"github.com/feeledger-dev/feeledger/internal/logging"
	"github.com/feeledger-dev/feeledger/internal/migration"
	"github.com/feeledger-dev/feeledger/internal/model"
	"github.com/feeledger-dev/feeledger/internal/pagination"
	"github.com/feeledger-dev/feeledger/internal/roster"
)

// env is what every ledger command needs: the root, its config and a logger.
type env struct {
	root  string
	actor string
	cfg   *config.Config
	log   *zap.Logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	repo, _ := cmd.Flags().GetString("repo")
	root, err := filepath.Abs(repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("loading %s (run 'feeledger init' first?): %w", config.FileName, err)
	}

	log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	actor, _ := cmd.Flags().GetString("actor")
	if actor == "" {
		actor = os.Getenv("USER")
	}
	if actor == "" {
		actor = "operator"
	}

	return &env{root: root, actor: actor, cfg: cfg, log: log}, nil
}

func (e *env) students(ctx context.Context) ([]model.StudentRecord, error) {
	return roster.FileSource{Path: roster.DefaultPath(e.root)}.Students(ctx)
}

// store opens the configured migration report store. The caller closes it.
func (e *env) store() (migration.Store, func() error, error) {
	switch e.cfg.Migration.Store {
	case "sqlite":
		path := filepath.Join(e.root, "migration", "report.db")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating migration dir: %w", err)
		}
		s, err := migration.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return migration.NewFileStore(e.root), func() error { return nil }, nil
	}
}

func (e *env) institution() pagination.Institution {
	i := e.cfg.Institution
	return pagination.Institution{Name: i.Name, Address: i.Address, Phone: i.Phone, Email: i.Email}
}

// audit appends events to the audit log. A failure is logged, not returned:
// the ledger change it describes has already happened.
func (e *env) audit(entries ...auditlog.Entry) {
	now := time.Now().UTC()
	for i := range entries {
		entries[i].Timestamp = now
		entries[i].Actor = e.actor
	}
	if err := auditlog.Append(e.root, entries...); err != nil {
		e.log.Warn("failed to write audit log", zap.Error(err))
	}
}

// commit records the ledger state in git when auto-commit is on.
func (e *env) commit(message string) {
	if !e.cfg.Git.AutoCommit || !gitops.IsRepo(e.root) {
		return
	}
	hash, err := gitops.CommitAll(e.root, message, e.cfg.Git.AuthorName, e.cfg.Git.AuthorEmail)
	if err != nil {
		e.log.Warn("git auto-commit failed", zap.Error(err))
		return
	}
	if hash != "" {
		e.log.Debug("committed", zap.String("hash", hash), zap.String("message", message))
	}
}
