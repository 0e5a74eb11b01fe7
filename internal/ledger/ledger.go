// Package ledger is the allocation ledger: it decides how many skeins of a
// yarn are free, accepts or rejects allocations to projects and keeps the
// stock invariant that allocations never exceed what is owned at the time
// they are made.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/metrics"
	"github.com/zulandar/stash/internal/models"
	"github.com/zulandar/stash/internal/yarn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Operation names used in logs and metrics.
const (
	OpAllocate   = "allocate"
	OpDeallocate = "deallocate"
	OpAdjust     = "adjust"
)

// Ledger performs allocation accounting against one database.
type Ledger struct {
	db      *gorm.DB
	metrics *metrics.Ledger
	log     *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMetrics records ledger operations in m.
func WithMetrics(m *metrics.Ledger) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithLogger sets the ledger's logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a ledger over db.
func New(db *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{db: db, log: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AllocateCmd asks for Amount skeins of a yarn to be reserved for a project.
type AllocateCmd struct {
	ProjectID uint
	YarnID    uint
	Amount    int
}

// Validate checks that the command names both sides and a positive amount.
func (c AllocateCmd) Validate() error {
	if c.ProjectID == 0 {
		return apperr.Validationf("project is required")
	}
	if c.YarnID == 0 {
		return apperr.Validationf("yarn is required")
	}
	if c.Amount <= 0 {
		return apperr.Validationf("skeins used must be greater than zero (got %d)", c.Amount)
	}
	return nil
}

// ParseAllocation converts caller text into a validated AllocateCmd.
func ParseAllocation(projectID, yarnID, amount string) (AllocateCmd, error) {
	pid, err := ParseID("project id", projectID)
	if err != nil {
		return AllocateCmd{}, err
	}
	yid, err := ParseID("yarn id", yarnID)
	if err != nil {
		return AllocateCmd{}, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(amount))
	if err != nil {
		return AllocateCmd{}, apperr.Validationf("skeins used %q is not a whole number", amount)
	}
	cmd := AllocateCmd{ProjectID: pid, YarnID: yid, Amount: n}
	if err := cmd.Validate(); err != nil {
		return AllocateCmd{}, err
	}
	return cmd, nil
}

// ParseID converts caller text into a positive ID. name labels the value in
// the validation error.
func ParseID(name, s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Validationf("invalid %s %q", name, s)
	}
	return uint(id), nil
}

// AllocateResult reports the state after an accepted allocation.
type AllocateResult struct {
	ProjectID  uint
	YarnID     uint
	SkeinsUsed int // total on the (project, yarn) line after merging
	Available  int // skeins of the yarn still free
	Remaining  int // skeins the project still needs; negative when over-allocated
}

// Available returns owned minus allocated skeins for a yarn. The result is
// negative only when owned stock was later reduced below what is allocated.
func (l *Ledger) Available(ctx context.Context, yarnID uint) (int, error) {
	s, err := yarn.GetStock(l.db.WithContext(ctx), yarnID)
	if err != nil {
		return 0, fmt.Errorf("ledger: available: %w", err)
	}
	if s.Overcommitted() {
		l.log.Warn("yarn overcommitted", "yarn_id", yarnID, "owned", s.SkeinsOwned, "allocated", s.Allocated)
	}
	return s.Available, nil
}

// Allocate reserves skeins of a yarn for a project. The yarn row is locked for
// the duration of the read-check-write so concurrent allocations of the same
// yarn cannot both pass the check. A second allocation of the same yarn to
// the same project is merged into the existing line. On rejection nothing is
// written and the error matches apperr.ErrInsufficientStock.
func (l *Ledger) Allocate(ctx context.Context, cmd AllocateCmd) (*AllocateResult, error) {
	started := time.Now()
	if err := cmd.Validate(); err != nil {
		l.metrics.Observe(OpAllocate, metrics.OutcomeRejected, started)
		return nil, fmt.Errorf("ledger: allocate: %w", err)
	}

	res := AllocateResult{ProjectID: cmd.ProjectID, YarnID: cmd.YarnID}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var y models.Yarn
		r := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", cmd.YarnID).Limit(1).Find(&y)
		if r.Error != nil {
			return apperr.Storage(fmt.Sprintf("lock yarn %d", cmd.YarnID), r.Error)
		}
		if r.RowsAffected == 0 {
			return apperr.NotFound("yarn", cmd.YarnID)
		}

		var p models.Project
		r = tx.Select("id", "required_skeins").Where("id = ?", cmd.ProjectID).Limit(1).Find(&p)
		if r.Error != nil {
			return apperr.Storage(fmt.Sprintf("load project %d", cmd.ProjectID), r.Error)
		}
		if r.RowsAffected == 0 {
			return apperr.NotFound("project", cmd.ProjectID)
		}

		allocated, err := sumUsed(tx, "yarn_id", cmd.YarnID)
		if err != nil {
			return err
		}
		available := y.SkeinsOwned - allocated
		if cmd.Amount > available {
			return &apperr.InsufficientStockError{
				YarnID:    cmd.YarnID,
				Requested: cmd.Amount,
				Available: max(available, 0),
			}
		}

		var line models.ProjectYarn
		r = tx.Where("project_id = ? AND yarn_id = ?", cmd.ProjectID, cmd.YarnID).Limit(1).Find(&line)
		if r.Error != nil {
			return apperr.Storage("load allocation", r.Error)
		}
		if r.RowsAffected > 0 {
			line.SkeinsUsed += cmd.Amount
			err = tx.Model(&models.ProjectYarn{}).
				Where("project_id = ? AND yarn_id = ?", cmd.ProjectID, cmd.YarnID).
				Update("skeins_used", line.SkeinsUsed).Error
		} else {
			line = models.ProjectYarn{ProjectID: cmd.ProjectID, YarnID: cmd.YarnID, SkeinsUsed: cmd.Amount}
			err = tx.Create(&line).Error
		}
		if err != nil {
			return apperr.Storage("write allocation", err)
		}

		projectUsed, err := sumUsed(tx, "project_id", cmd.ProjectID)
		if err != nil {
			return err
		}
		res.SkeinsUsed = line.SkeinsUsed
		res.Available = available - cmd.Amount
		res.Remaining = p.RequiredSkeins - projectUsed
		return nil
	})
	if err != nil {
		outcome := metrics.OutcomeError
		if kind := apperr.KindOf(err); kind == apperr.KindInsufficientStock || kind == apperr.KindNotFound {
			outcome = metrics.OutcomeRejected
		}
		l.metrics.Observe(OpAllocate, outcome, started)
		return nil, fmt.Errorf("ledger: allocate: %w", err)
	}

	l.metrics.Observe(OpAllocate, metrics.OutcomeOK, started)
	l.metrics.AddSkeins(OpAllocate, cmd.Amount)
	l.log.Info("skeins allocated",
		"project_id", cmd.ProjectID, "yarn_id", cmd.YarnID, "amount", cmd.Amount,
		"available", res.Available, "remaining", res.Remaining)
	return &res, nil
}

// Deallocate removes a project's allocation of a yarn, returning its skeins
// to the pool. Removing an allocation that does not exist is not an error.
func (l *Ledger) Deallocate(ctx context.Context, projectID, yarnID uint) error {
	started := time.Now()
	r := l.db.WithContext(ctx).
		Where("project_id = ? AND yarn_id = ?", projectID, yarnID).
		Delete(&models.ProjectYarn{})
	if r.Error != nil {
		l.metrics.Observe(OpDeallocate, metrics.OutcomeError, started)
		return apperr.Storage(fmt.Sprintf("ledger: deallocate %d/%d", projectID, yarnID), r.Error)
	}
	l.metrics.Observe(OpDeallocate, metrics.OutcomeOK, started)
	if r.RowsAffected > 0 {
		l.log.Info("allocation removed", "project_id", projectID, "yarn_id", yarnID)
	}
	return nil
}

// AdjustOwned changes a yarn's owned skeins by delta, clamping at zero.
// Owned stock may drop below what is already allocated; existing allocations
// are kept and the yarn is reported as overcommitted.
func (l *Ledger) AdjustOwned(ctx context.Context, yarnID uint, delta int) (*yarn.Stock, error) {
	started := time.Now()
	var added int
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var y models.Yarn
		r := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", yarnID).Limit(1).Find(&y)
		if r.Error != nil {
			return apperr.Storage(fmt.Sprintf("lock yarn %d", yarnID), r.Error)
		}
		if r.RowsAffected == 0 {
			return apperr.NotFound("yarn", yarnID)
		}
		owned := max(y.SkeinsOwned+delta, 0)
		added = owned - y.SkeinsOwned
		if err := tx.Model(&models.Yarn{}).Where("id = ?", yarnID).Update("skeins_owned", owned).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("update yarn %d", yarnID), err)
		}
		return nil
	})
	if err != nil {
		outcome := metrics.OutcomeError
		if apperr.KindOf(err) == apperr.KindNotFound {
			outcome = metrics.OutcomeRejected
		}
		l.metrics.Observe(OpAdjust, outcome, started)
		return nil, fmt.Errorf("ledger: adjust: %w", err)
	}
	l.metrics.Observe(OpAdjust, metrics.OutcomeOK, started)
	l.metrics.AddSkeins(OpAdjust, added)

	s, err := yarn.GetStock(l.db.WithContext(ctx), yarnID)
	if err != nil {
		return nil, fmt.Errorf("ledger: adjust: %w", err)
	}
	l.log.Info("stock adjusted", "yarn_id", yarnID, "delta", delta, "owned", s.SkeinsOwned)
	if s.Overcommitted() {
		l.log.Warn("yarn overcommitted", "yarn_id", yarnID, "owned", s.SkeinsOwned, "allocated", s.Allocated)
	}
	return s, nil
}

// RemainingRequired returns the project's required skeins minus everything
// allocated to it. Over-allocation yields a negative value.
func (l *Ledger) RemainingRequired(ctx context.Context, projectID uint) (int, error) {
	db := l.db.WithContext(ctx)
	var p models.Project
	r := db.Select("id", "required_skeins").Where("id = ?", projectID).Limit(1).Find(&p)
	if r.Error != nil {
		return 0, apperr.Storage(fmt.Sprintf("ledger: remaining %d", projectID), r.Error)
	}
	if r.RowsAffected == 0 {
		return 0, fmt.Errorf("ledger: remaining: %w", apperr.NotFound("project", projectID))
	}
	used, err := sumUsed(db, "project_id", projectID)
	if err != nil {
		return 0, fmt.Errorf("ledger: remaining: %w", err)
	}
	return p.RequiredSkeins - used, nil
}

// sumUsed totals skeins_used over allocations where column equals id.
func sumUsed(db *gorm.DB, column string, id uint) (int, error) {
	var total int
	err := db.Model(&models.ProjectYarn{}).
		Select("COALESCE(SUM(skeins_used), 0)").
		Where(column+" = ?", id).
		Scan(&total).Error
	if err != nil {
		return 0, apperr.Storage("sum allocations", err)
	}
	return total, nil
}
