package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrSchemaNotReady is returned when a column is still missing after the
// retry budget is exhausted. It wraps the last underlying probe error so the
// caller can advise "try again shortly" rather than "invalid input".
var ErrSchemaNotReady = errors.New("schema not ready")

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ColumnProber performs one cheap read against a column. Probes must be
// read-only.
type ColumnProber interface {
	ProbeColumn(ctx context.Context, column string) error
}

type dbProber struct {
	db *gorm.DB
}

func (p dbProber) ProbeColumn(ctx context.Context, column string) error {
	if !identPattern.MatchString(column) {
		return fmt.Errorf("invalid column name %q", column)
	}
	rows, err := p.db.WithContext(ctx).
		Raw(fmt.Sprintf("SELECT %s FROM products LIMIT 1", column)).
		Rows()
	if err != nil {
		return err
	}
	return rows.Close()
}

// Gate papers over the eventual consistency of the backend's schema cache: a
// freshly added column may not be queryable immediately, and writes that
// reference it transiently fail. EnsureReady probes until the column answers
// or the retry budget runs out.
type Gate struct {
	prober     ColumnProber
	maxRetries uint
	baseDelay  time.Duration
	logger     *zap.Logger
}

// NewGate builds a gate probing through the given database handle.
func NewGate(db *gorm.DB, maxRetries uint, baseDelay time.Duration, logger *zap.Logger) *Gate {
	return NewGateWithProber(dbProber{db: db}, maxRetries, baseDelay, logger)
}

// NewGateWithProber builds a gate over any prober implementation.
func NewGateWithProber(prober ColumnProber, maxRetries uint, baseDelay time.Duration, logger *zap.Logger) *Gate {
	if maxRetries == 0 {
		maxRetries = 1
	}
	return &Gate{
		prober:     prober,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger.With(zap.String("component", "schema-gate")),
	}
}

// EnsureReady blocks until the column is confirmed queryable. Missing-column
// errors trigger a delayed retry; any other failure is fatal and
// short-circuits the remaining attempts. Idempotent and safe to call before
// every gated write.
func (g *Gate) EnsureReady(ctx context.Context, column string) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := g.prober.ProbeColumn(ctx, column)
		if err == nil {
			g.logger.Debug("column ready",
				zap.String("column", column),
				zap.Int("attempts", attempt),
			)
			return nil
		}
		if IsMissingColumn(err) {
			g.logger.Warn("column not yet queryable",
				zap.String("column", column),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(backoff.WithInitialInterval(g.baseDelay)),
			uint64(g.maxRetries-1),
		),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		if IsMissingColumn(err) {
			return fmt.Errorf("%w: column %q after %d attempts: %v", ErrSchemaNotReady, column, attempt, err)
		}
		return err
	}
	return nil
}

// IsMissingColumn classifies a probe failure as a transient missing-column
// condition. Pure function of the error message; covers Postgres, PostgREST
// schema-cache responses, and SQLite.
func IsMissingColumn(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "schema cache"):
		return true
	case strings.Contains(msg, "no such column"):
		return true
	case strings.Contains(msg, "column") && strings.Contains(msg, "does not exist"):
		return true
	case strings.Contains(msg, "undefined column"):
		return true
	default:
		return false
	}
}
