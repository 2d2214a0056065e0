package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/theplant/criteria"
	"github.com/theplant/criteria/filter/docfilter"
	"github.com/theplant/criteria/filter/gormfilter"
)

// NewComposeCommand creates the compose command.
func NewComposeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose <request.yaml>",
		Short: "Compose a search request into a backend query",
		Long: `Compose a search request into a backend query.

The doc backend prints {"filter":..,"sort":..,"skip":..,"limit":..} as JSON.
The sql backend prints the SELECT statement for the configured table, with
values inlined.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(rootOpts.ConfigFile, cmd)
			if err != nil {
				return err
			}
			req, err := LoadRequest(args[0])
			if err != nil {
				return err
			}
			return runCompose(cmd.OutOrStdout(), cfg, req, rootOpts.logger())
		},
	}

	addConfigFlags(cmd)

	return cmd
}

func runCompose(w io.Writer, cfg *Config, req *Request, logger *slog.Logger) error {
	node, err := req.Node()
	if err != nil {
		return err
	}
	page, err := req.PageAttribute(cfg)
	if err != nil {
		return err
	}

	var out string
	switch cfg.Backend {
	case BackendDoc:
		out, err = composeDoc(cfg, node, page, logger)
	case BackendSQL:
		out, err = composeSQL(cfg, node, page, logger)
	default:
		err = errors.Errorf("invalid backend %q", cfg.Backend)
	}
	if err != nil {
		return err
	}

	logger.Info("composed query", "backend", cfg.Backend, "limit", page.Limit, "offset", page.Offset)
	_, err = fmt.Fprintln(w, out)
	return err
}

func primaryOrders(cfg *Config) []criteria.Order {
	if cfg.PrimaryKey == "" {
		return nil
	}
	return []criteria.Order{{Field: cfg.PrimaryKey, Direction: criteria.OrderDirectionAsc}}
}

func composeDoc(cfg *Config, node *criteria.Node, page *criteria.PageAttribute, logger *slog.Logger) (string, error) {
	svc, err := docfilter.NewService(
		criteria.WithMaxDepth[docfilter.Filter](cfg.MaxDepth),
		criteria.WithLogger[docfilter.Filter](logger),
	)
	if err != nil {
		return "", err
	}
	q, err := build(svc, node, page, cfg)
	if err != nil {
		return "", err
	}
	b, err := docfilter.EncodeQuery(q)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func composeSQL(cfg *Config, node *criteria.Node, page *criteria.PageAttribute, logger *slog.Logger) (string, error) {
	svc, err := gormfilter.NewService(
		criteria.WithMaxDepth[clause.Expression](cfg.MaxDepth),
		criteria.WithLogger[clause.Expression](logger),
	)
	if err != nil {
		return "", err
	}
	q, err := build(svc, node, page, cfg)
	if err != nil {
		return "", err
	}

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=critq dbname=critq sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Discard,
	})
	if err != nil {
		return "", errors.Wrap(err, "open dry run session")
	}

	tx := db.Table(cfg.Table).Scopes(gormfilter.Scope(q)).Find(&[]map[string]any{})
	if tx.Error != nil {
		return "", tx.Error
	}
	return db.Dialector.Explain(tx.Statement.SQL.String(), tx.Statement.Vars...), nil
}

func build[P any](svc *criteria.Service[P], node *criteria.Node, page *criteria.PageAttribute, cfg *Config) (*criteria.Query[P], error) {
	base, err := svc.Build(node)
	if err != nil {
		return nil, err
	}
	q, err := svc.AssemblePage(base, page, cfg.Sortable)
	if err != nil {
		return nil, err
	}
	q.Sort = criteria.AppendPrimaryOrder(q.Sort, primaryOrders(cfg)...)
	return q, nil
}
