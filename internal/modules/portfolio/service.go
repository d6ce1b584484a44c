package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/domain"
)

// PriceSource supplies latest closes for valuation
type PriceSource interface {
	LatestClose(symbol string) (float64, error)
}

// Service implements cash movements and valuation on top of the portfolio,
// holdings and journal repositories. Deposits and withdrawals commit the cash
// update and the journal record in one transaction.
type Service struct {
	db        *sql.DB
	repo      *Repository
	holdings  *HoldingRepository
	journal   *JournalRepository
	snapshots *SnapshotRepository
	prices    PriceSource
	locker    *Locker
	log       zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	db *sql.DB,
	repo *Repository,
	holdings *HoldingRepository,
	journal *JournalRepository,
	snapshots *SnapshotRepository,
	prices PriceSource,
	locker *Locker,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		holdings:  holdings,
		journal:   journal,
		snapshots: snapshots,
		prices:    prices,
		locker:    locker,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// Deposit adds cash to a portfolio and journals the movement
func (s *Service) Deposit(portfolioID, userID int64, amount decimal.Decimal) (*Portfolio, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.Validation("deposit amount must be positive")
	}
	if _, err := s.repo.GetOwned(portfolioID, userID); err != nil {
		return nil, err
	}

	s.locker.Lock(portfolioID)
	defer s.locker.Unlock(portfolioID)

	detail := fmt.Sprintf("Deposit $%s", amount.StringFixed(2))
	return s.moveCash(portfolioID, userID, amount, detail)
}

// Withdraw removes cash from a portfolio and journals the movement
func (s *Service) Withdraw(portfolioID, userID int64, amount decimal.Decimal) (*Portfolio, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.Validation("withdrawal amount must be positive")
	}
	if _, err := s.repo.GetOwned(portfolioID, userID); err != nil {
		return nil, err
	}

	s.locker.Lock(portfolioID)
	defer s.locker.Unlock(portfolioID)

	detail := fmt.Sprintf("Withdraw $%s", amount.StringFixed(2))
	return s.moveCash(portfolioID, userID, amount.Neg(), detail)
}

// moveCash applies a signed cash delta and its journal record atomically.
// The caller holds the portfolio lock.
func (s *Service) moveCash(portfolioID, userID int64, delta decimal.Decimal, detail string) (*Portfolio, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, classifyStorage("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	balance, err := s.repo.GetCashTx(tx, portfolioID)
	if err != nil {
		return nil, err
	}

	newBalance := balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, domain.Conflict("not enough funds: balance %s, requested %s",
			balance.StringFixed(2), delta.Abs().StringFixed(2))
	}

	if err := s.repo.SetCashTx(tx, portfolioID, newBalance); err != nil {
		return nil, err
	}
	if err := s.journal.AppendTx(tx, portfolioID, delta, detail); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, classifyStorage("failed to commit cash movement", err)
	}

	s.log.Info().
		Int64("portfolio_id", portfolioID).
		Str("delta", delta.String()).
		Str("balance", newBalance.String()).
		Msg("Cash moved")

	return s.repo.GetOwned(portfolioID, userID)
}

// HoldingsValue returns each holding with its latest close and market value.
// A symbol without price data reports null values rather than failing the
// whole request.
func (s *Service) HoldingsValue(portfolioID, userID int64) ([]HoldingValue, error) {
	if _, err := s.repo.GetOwned(portfolioID, userID); err != nil {
		return nil, err
	}

	holdings, err := s.holdings.ListByPortfolio(portfolioID)
	if err != nil {
		return nil, err
	}

	values := make([]HoldingValue, 0, len(holdings))
	for _, h := range holdings {
		hv := HoldingValue{Symbol: h.Symbol, Shares: h.Shares}

		close, err := s.prices.LatestClose(h.Symbol)
		if err == nil {
			value := close * float64(h.Shares)
			hv.LastClose = &close
			hv.Value = &value
		} else if !domain.IsKind(err, domain.KindNotFound) {
			return nil, err
		}
		values = append(values, hv)
	}
	return values, nil
}

// Value computes cash plus holdings market value
func (s *Service) Value(portfolioID, userID int64) (*Value, error) {
	p, err := s.repo.GetOwned(portfolioID, userID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.HoldingsValue(portfolioID, userID)
	if err != nil {
		return nil, err
	}

	var holdingsValue float64
	for _, hv := range holdings {
		if hv.Value != nil {
			holdingsValue += *hv.Value
		}
	}

	return &Value{
		PortfolioID:   portfolioID,
		CashBalance:   p.CashBalance,
		HoldingsValue: holdingsValue,
		Total:         p.CashBalance.InexactFloat64() + holdingsValue,
	}, nil
}

// WriteSnapshots records today's valuation for every portfolio. Run by the
// scheduler.
func (s *Service) WriteSnapshots() error {
	portfolios, err := s.repo.All()
	if err != nil {
		return err
	}

	today := time.Now().Format(domain.DateLayout)
	for _, p := range portfolios {
		value, err := s.Value(p.ID, p.UserID)
		if err != nil {
			s.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to value portfolio for snapshot")
			continue
		}

		holdings, err := s.holdings.ListByPortfolio(p.ID)
		if err != nil {
			return err
		}

		snapshot := Snapshot{
			PortfolioID:   p.ID,
			Date:          today,
			TotalValue:    value.Total,
			CashBalance:   value.CashBalance.InexactFloat64(),
			HoldingsValue: value.HoldingsValue,
			PositionCount: len(holdings),
		}
		if err := s.snapshots.Upsert(snapshot); err != nil {
			return err
		}
	}

	s.log.Info().Int("portfolios", len(portfolios)).Str("date", today).Msg("Snapshots written")
	return nil
}

// Snapshots returns recent snapshots of an owned portfolio
func (s *Service) Snapshots(portfolioID, userID int64, limit int) ([]Snapshot, error) {
	if _, err := s.repo.GetOwned(portfolioID, userID); err != nil {
		return nil, err
	}
	return s.snapshots.ListByPortfolio(portfolioID, limit)
}

// classifyStorage maps lock contention to a retryable error and wraps the rest
func classifyStorage(msg string, err error) error {
	if database.IsBusy(err) || database.IsTimeout(err) {
		return domain.Transient(msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
