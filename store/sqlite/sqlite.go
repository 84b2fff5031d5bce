/*
Package sqlite provides a SQLite-backed implementation of chit.TxStore.

PURPOSE:
  Persists groups, members, tickets and the two append-only ledgers
  (auctions, payments). The services in package chit hold the business
  rules; this package only stores rows and enforces the uniqueness
  indexes the rules depend on.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on auctions or payments
  - Group status is the only mutable field in the financial tables

KEY TABLES:
  chit_groups: Financial configuration and lifecycle status
  members:     People
  tickets:     A member's seat in a group
  auctions:    One settled month per row, settlement fields as decimal TEXT
  payments:    Collection rows, seq preserves insertion order

INDEXES:
  Uniqueness the engine relies on under concurrency:
  - idx_auctions_group_month: one auction per (group, month)   -> chit.ErrMonthTaken
  - idx_auctions_winner:      a ticket wins at most once        -> chit.ErrAlreadyWon
  - idx_tickets_group_number: ticket numbers unique per group   -> chit.ErrTicketTaken

CONCURRENCY:
  A single connection plus sync.RWMutex. WithTx holds the write lock for
  the whole unit of work, so check-then-insert sequences in the services
  never interleave. The unique indexes are the second line of defence.

MIGRATION:
  Versioned SQL files under migrations/ are embedded and applied with
  golang-migrate on New().

USAGE:
  store, err := sqlite.New("./data/chit.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  auctions := chit.NewAuctionService(store, chit.CarryLedger{})

SEE ALSO:
  - chit/store.go:        Interface definitions
  - chit/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	mattn "github.com/mattn/go-sqlite3"
	"github.com/warp/chit-engine/chit"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const timeFormat = time.RFC3339Nano

// Store implements chit.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ chit.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection, and WithTx
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate applies the embedded migrations. The migrate instance is not
// closed because its database driver would close s.db with it.
func (s *Store) migrate() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (chit.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store chit.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txStore runs every chit.Store method against one queryer without locking.
// Store wraps it with s.mu; WithTx hands it out bound to the open *sql.Tx.
type txStore struct {
	q queryer
}

func (s *Store) conn() *txStore { return &txStore{q: s.db} }

// =============================================================================
// LOCKED ENTRY POINTS
// =============================================================================

func (s *Store) SaveGroup(ctx context.Context, g chit.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().SaveGroup(ctx, g)
}

func (s *Store) GetGroup(ctx context.Context, id chit.GroupID) (*chit.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetGroup(ctx, id)
}

func (s *Store) ListGroups(ctx context.Context, filter chit.GroupFilter) ([]chit.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().ListGroups(ctx, filter)
}

func (s *Store) UpdateGroupStatus(ctx context.Context, id chit.GroupID, status chit.GroupStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().UpdateGroupStatus(ctx, id, status)
}

func (s *Store) SaveMember(ctx context.Context, m chit.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().SaveMember(ctx, m)
}

func (s *Store) GetMember(ctx context.Context, id chit.MemberID) (*chit.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetMember(ctx, id)
}

func (s *Store) ListMembers(ctx context.Context) ([]chit.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().ListMembers(ctx)
}

func (s *Store) SaveTicket(ctx context.Context, t chit.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().SaveTicket(ctx, t)
}

func (s *Store) GetTicket(ctx context.Context, id chit.TicketID) (*chit.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetTicket(ctx, id)
}

func (s *Store) ListTickets(ctx context.Context, groupID chit.GroupID) ([]chit.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().ListTickets(ctx, groupID)
}

func (s *Store) AppendAuction(ctx context.Context, a chit.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().AppendAuction(ctx, a)
}

func (s *Store) GetAuction(ctx context.Context, id chit.AuctionID) (*chit.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetAuction(ctx, id)
}

func (s *Store) AuctionForMonth(ctx context.Context, groupID chit.GroupID, month int) (*chit.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().AuctionForMonth(ctx, groupID, month)
}

func (s *Store) AuctionWonBy(ctx context.Context, ticketID chit.TicketID) (*chit.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().AuctionWonBy(ctx, ticketID)
}

func (s *Store) ListAuctions(ctx context.Context, groupID chit.GroupID) ([]chit.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().ListAuctions(ctx, groupID)
}

func (s *Store) AppendPayment(ctx context.Context, p chit.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().AppendPayment(ctx, p)
}

func (s *Store) PaymentsFor(ctx context.Context, ticketID chit.TicketID, month int) ([]chit.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().PaymentsFor(ctx, ticketID, month)
}

func (s *Store) ListPayments(ctx context.Context, filter chit.PaymentFilter) ([]chit.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().ListPayments(ctx, filter)
}

// =============================================================================
// GROUPS
// =============================================================================

const groupColumns = `id, name, total_amount, total_members, duration_months, monthly_amount,
	commission_type, commission_value, round_off_value, status, auction_start_date, created_at`

func (ts *txStore) SaveGroup(ctx context.Context, g chit.Group) error {
	var start sql.NullString
	if g.AuctionStartDate != nil {
		start = sql.NullString{String: g.AuctionStartDate.UTC().Format(timeFormat), Valid: true}
	}

	query := `
		INSERT INTO chit_groups (` + groupColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			auction_start_date = excluded.auction_start_date
	`
	_, err := ts.q.ExecContext(ctx, query,
		g.ID,
		g.Name,
		g.TotalAmount.String(),
		g.TotalMembers,
		g.DurationMonths,
		g.MonthlyAmount.String(),
		g.CommissionType,
		g.CommissionValue.String(),
		g.RoundOffValue.String(),
		g.Status,
		start,
		g.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}
	return nil
}

func (ts *txStore) GetGroup(ctx context.Context, id chit.GroupID) (*chit.Group, error) {
	row := ts.q.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM chit_groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chit.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (ts *txStore) ListGroups(ctx context.Context, filter chit.GroupFilter) ([]chit.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM chit_groups`
	var args []any
	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := ts.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var out []chit.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (ts *txStore) UpdateGroupStatus(ctx context.Context, id chit.GroupID, status chit.GroupStatus) error {
	res, err := ts.q.ExecContext(ctx, `UPDATE chit_groups SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update group status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chit.ErrGroupNotFound
	}
	return nil
}

// =============================================================================
// MEMBERS
// =============================================================================

func (ts *txStore) SaveMember(ctx context.Context, m chit.Member) error {
	query := `
		INSERT INTO members (id, name, mobile, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mobile = excluded.mobile,
			active = excluded.active
	`
	_, err := ts.q.ExecContext(ctx, query, m.ID, m.Name, m.Mobile, m.Active, m.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}
	return nil
}

func (ts *txStore) GetMember(ctx context.Context, id chit.MemberID) (*chit.Member, error) {
	row := ts.q.QueryRowContext(ctx, `SELECT id, name, mobile, active, created_at FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chit.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (ts *txStore) ListMembers(ctx context.Context) ([]chit.Member, error) {
	rows, err := ts.q.QueryContext(ctx, `SELECT id, name, mobile, active, created_at FROM members ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var out []chit.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// TICKETS
// =============================================================================

const ticketColumns = `id, group_id, ticket_number, member_id, active, created_at`

func (ts *txStore) SaveTicket(ctx context.Context, t chit.Ticket) error {
	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET active = excluded.active
	`
	_, err := ts.q.ExecContext(ctx, query,
		t.ID, t.GroupID, t.TicketNumber, t.MemberID, t.Active, t.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		if isUniqueConstraintError(err, "tickets.group_id") {
			return chit.ErrTicketTaken
		}
		return fmt.Errorf("failed to save ticket: %w", err)
	}
	return nil
}

func (ts *txStore) GetTicket(ctx context.Context, id chit.TicketID) (*chit.Ticket, error) {
	row := ts.q.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chit.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (ts *txStore) ListTickets(ctx context.Context, groupID chit.GroupID) ([]chit.Ticket, error) {
	rows, err := ts.q.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE group_id = ? ORDER BY ticket_number ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var out []chit.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// AUCTION LEDGER
// =============================================================================

const auctionColumns = `id, group_id, month_number, winner_ticket_id, original_bid,
	winning_amount, commission, carry_previous, raw_dividend, raw_per_member,
	per_member_dividend, roundoff_dividend, carry_next, monthly_amount, amount_to_collect, created_at`

func (ts *txStore) AppendAuction(ctx context.Context, a chit.Auction) error {
	st := a.Settlement
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ts.q.ExecContext(ctx, query,
		a.ID,
		a.GroupID,
		a.MonthNumber,
		a.WinnerTicketID,
		a.OriginalBid.String(),
		st.WinningAmount.String(),
		st.Commission.String(),
		st.CarryPrevious.String(),
		st.RawDividend.String(),
		st.RawPerMember.String(),
		st.PerMemberDividend.String(),
		st.RoundoffDividend.String(),
		st.CarryNext.String(),
		st.MonthlyAmount.String(),
		st.AmountToCollect.String(),
		a.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		switch {
		case isUniqueConstraintError(err, "auctions.month_number"):
			return chit.ErrMonthTaken
		case isUniqueConstraintError(err, "auctions.winner_ticket_id"):
			return chit.ErrAlreadyWon
		}
		return fmt.Errorf("failed to append auction: %w", err)
	}
	return nil
}

func (ts *txStore) GetAuction(ctx context.Context, id chit.AuctionID) (*chit.Auction, error) {
	return ts.oneAuction(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = ?`, id)
}

func (ts *txStore) AuctionForMonth(ctx context.Context, groupID chit.GroupID, month int) (*chit.Auction, error) {
	return ts.oneAuction(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE group_id = ? AND month_number = ?`, groupID, month)
}

func (ts *txStore) AuctionWonBy(ctx context.Context, ticketID chit.TicketID) (*chit.Auction, error) {
	return ts.oneAuction(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE winner_ticket_id = ?`, ticketID)
}

func (ts *txStore) ListAuctions(ctx context.Context, groupID chit.GroupID) ([]chit.Auction, error) {
	rows, err := ts.q.QueryContext(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE group_id = ? ORDER BY month_number ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query auctions: %w", err)
	}
	defer rows.Close()

	var out []chit.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (ts *txStore) oneAuction(ctx context.Context, query string, args ...any) (*chit.Auction, error) {
	a, err := scanAuction(ts.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chit.ErrAuctionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// =============================================================================
// PAYMENT LEDGER
// =============================================================================

const paymentColumns = `id, group_id, ticket_id, month_number, amount_paid, payment_method,
	upi_id, payment_date, status, notes, created_at`

func (ts *txStore) AppendPayment(ctx context.Context, p chit.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ts.q.ExecContext(ctx, query,
		p.ID,
		p.GroupID,
		p.TicketID,
		p.MonthNumber,
		p.AmountPaid.String(),
		p.Method,
		nullString(p.UPIID),
		p.PaymentDate.UTC().Format(timeFormat),
		p.Status,
		nullString(p.Notes),
		p.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

func (ts *txStore) PaymentsFor(ctx context.Context, ticketID chit.TicketID, month int) ([]chit.Payment, error) {
	return ts.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE ticket_id = ? AND month_number = ? ORDER BY seq ASC`,
		ticketID, month)
}

func (ts *txStore) ListPayments(ctx context.Context, filter chit.PaymentFilter) ([]chit.Payment, error) {
	var (
		where []string
		args  []any
	)
	if filter.GroupID != nil {
		where = append(where, "group_id = ?")
		args = append(args, *filter.GroupID)
	}
	if filter.TicketID != nil {
		where = append(where, "ticket_id = ?")
		args = append(args, *filter.TicketID)
	}
	if filter.MonthNumber != nil {
		where = append(where, "month_number = ?")
		args = append(args, *filter.MonthNumber)
	}

	query := `SELECT ` + paymentColumns + ` FROM payments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq ASC`
	return ts.queryPayments(ctx, query, args...)
}

func (ts *txStore) queryPayments(ctx context.Context, query string, args ...any) ([]chit.Payment, error) {
	rows, err := ts.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []chit.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// SCANNING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(row scanner) (chit.Group, error) {
	var (
		g         chit.Group
		start     sql.NullString
		createdAt string
	)
	err := row.Scan(
		&g.ID, &g.Name, &g.TotalAmount, &g.TotalMembers, &g.DurationMonths, &g.MonthlyAmount,
		&g.CommissionType, &g.CommissionValue, &g.RoundOffValue, &g.Status, &start, &createdAt,
	)
	if err != nil {
		return g, wrapScan("group", err)
	}
	if start.Valid {
		t, err := time.Parse(timeFormat, start.String)
		if err != nil {
			return g, fmt.Errorf("failed to parse auction_start_date: %w", err)
		}
		g.AuctionStartDate = &t
	}
	g.CreatedAt, err = time.Parse(timeFormat, createdAt)
	return g, err
}

func scanMember(row scanner) (chit.Member, error) {
	var (
		m         chit.Member
		createdAt string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Mobile, &m.Active, &createdAt); err != nil {
		return m, wrapScan("member", err)
	}
	var err error
	m.CreatedAt, err = time.Parse(timeFormat, createdAt)
	return m, err
}

func scanTicket(row scanner) (chit.Ticket, error) {
	var (
		t         chit.Ticket
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.GroupID, &t.TicketNumber, &t.MemberID, &t.Active, &createdAt); err != nil {
		return t, wrapScan("ticket", err)
	}
	var err error
	t.CreatedAt, err = time.Parse(timeFormat, createdAt)
	return t, err
}

func scanAuction(row scanner) (chit.Auction, error) {
	var (
		a         chit.Auction
		createdAt string
	)
	st := &a.Settlement
	err := row.Scan(
		&a.ID, &a.GroupID, &a.MonthNumber, &a.WinnerTicketID, &a.OriginalBid,
		&st.WinningAmount, &st.Commission, &st.CarryPrevious, &st.RawDividend, &st.RawPerMember,
		&st.PerMemberDividend, &st.RoundoffDividend, &st.CarryNext, &st.MonthlyAmount, &st.AmountToCollect,
		&createdAt,
	)
	if err != nil {
		return a, wrapScan("auction", err)
	}
	a.CreatedAt, err = time.Parse(timeFormat, createdAt)
	return a, err
}

func scanPayment(row scanner) (chit.Payment, error) {
	var (
		p                      chit.Payment
		upiID, notes           sql.NullString
		paymentDate, createdAt string
	)
	err := row.Scan(
		&p.ID, &p.GroupID, &p.TicketID, &p.MonthNumber, &p.AmountPaid, &p.Method,
		&upiID, &paymentDate, &p.Status, &notes, &createdAt,
	)
	if err != nil {
		return p, wrapScan("payment", err)
	}
	p.UPIID = upiID.String
	p.Notes = notes.String
	if p.PaymentDate, err = time.Parse(timeFormat, paymentDate); err != nil {
		return p, fmt.Errorf("failed to parse payment_date: %w", err)
	}
	p.CreatedAt, err = time.Parse(timeFormat, createdAt)
	return p, err
}

// Helper functions

func wrapScan(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return fmt.Errorf("failed to scan %s: %w", what, err)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueConstraintError reports a UNIQUE violation naming column.
// SQLite messages read "UNIQUE constraint failed: table.col1, table.col2".
func isUniqueConstraintError(err error, column string) bool {
	var sqliteErr mattn.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != mattn.ErrConstraintUnique {
		return false
	}
	return strings.Contains(sqliteErr.Error(), column)
}
