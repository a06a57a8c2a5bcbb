/*
Package sqlite provides the SQLite-backed store.

PURPOSE:
  Implements the mealcard, directory and menu store interfaces on a
  single SQLite database. The service logic is identical whether it runs
  on this store or on store/memory; only durability differs.

KEY TABLES:
  cards:         Meal-card records (balance stored as decimal text)
  transactions:  Purchase/recharge log
  users:         Directory accounts
  meals:         Cafeteria catalog (ingredients/allergens as JSON)

MONEY:
  Balances and amounts are stored as decimal strings, never floats, so a
  read-back always equals what was written.

WAL MODE:
  The database is opened with WAL for better concurrency: readers don't
  block and crash recovery is cheap.

MIGRATION:
  Schema is auto-migrated on New(). A production deployment would use a
  versioned migration tool instead.

SEE ALSO:
  - mealcard/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/campuscard/server/directory"
	"github.com/campuscard/server/mealcard"
	"github.com/campuscard/server/menu"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at dbPath. Use ":memory:" for an in-memory
// database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection sidesteps SQLite's writer contention; throughput
	// is not a concern at this scale.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		card_number TEXT NOT NULL,
		balance TEXT NOT NULL,
		status TEXT NOT NULL,
		issued_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		last_used_at TEXT,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cards_student_status
		ON cards(student_id, status);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		card_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		reference TEXT NOT NULL,
		meal_id TEXT,
		cashier_id TEXT,
		approved_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_card
		ON transactions(card_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_status
		ON transactions(status);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at
		ON transactions(created_at);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		student_id TEXT,
		avatar TEXT,
		password_hash TEXT NOT NULL,
		is_active INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meals (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		category TEXT NOT NULL,
		image TEXT,
		description TEXT,
		available INTEGER NOT NULL,
		ingredients_json TEXT,
		nutrition_json TEXT,
		preparation_time INTEGER NOT NULL DEFAULT 0,
		allergens_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// CARDS
// =============================================================================

func (s *Store) SaveCard(ctx context.Context, card *mealcard.Card) error {
	return saveCard(ctx, s.db, card)
}

func saveCard(ctx context.Context, q queryer, card *mealcard.Card) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO cards (id, student_id, card_number, balance, status, issued_at, expires_at, last_used_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(card.ID), string(card.StudentID), card.CardNumber,
		card.Balance.Value.String(), string(card.Status),
		card.IssuedAt.UTC().Format(time.RFC3339Nano),
		card.ExpiresAt.UTC().Format(time.RFC3339Nano),
		nullableTime(card.LastUsedAt),
		card.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetCard(ctx context.Context, id mealcard.CardID) (*mealcard.Card, error) {
	return getCard(ctx, s.db, id)
}

func getCard(ctx context.Context, q queryer, id mealcard.CardID) (*mealcard.Card, error) {
	rows, err := q.QueryContext(ctx, cardSelect+` WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanCard(rows)
}

func (s *Store) UpdateCard(ctx context.Context, card *mealcard.Card) error {
	return updateCard(ctx, s.db, card)
}

func updateCard(ctx context.Context, q queryer, card *mealcard.Card) error {
	_, err := q.ExecContext(ctx, `
		UPDATE cards SET balance = ?, status = ?, last_used_at = ?, updated_at = ?
		WHERE id = ?`,
		card.Balance.Value.String(), string(card.Status),
		nullableTime(card.LastUsedAt),
		card.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(card.ID),
	)
	return err
}

func (s *Store) ListCards(ctx context.Context, filter mealcard.CardFilter) ([]*mealcard.Card, error) {
	return listCards(ctx, s.db, filter)
}

func listCards(ctx context.Context, q queryer, filter mealcard.CardFilter) ([]*mealcard.Card, error) {
	query := cardSelect + ` WHERE 1=1`
	var args []any
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.StudentID != nil {
		query += ` AND student_id = ?`
		args = append(args, string(*filter.StudentID))
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*mealcard.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

func (s *Store) ActiveCardForStudent(ctx context.Context, studentID mealcard.StudentID) (*mealcard.Card, error) {
	return activeCardForStudent(ctx, s.db, studentID)
}

func activeCardForStudent(ctx context.Context, q queryer, studentID mealcard.StudentID) (*mealcard.Card, error) {
	rows, err := q.QueryContext(ctx,
		cardSelect+` WHERE student_id = ? AND status = ? LIMIT 1`,
		string(studentID), string(mealcard.CardActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanCard(rows)
}

const cardSelect = `
	SELECT id, student_id, card_number, balance, status, issued_at, expires_at, last_used_at, updated_at
	FROM cards`

func scanCard(rows *sql.Rows) (*mealcard.Card, error) {
	var (
		card                         mealcard.Card
		id, studentID, balance       string
		state                        string
		issuedAt, expiresAt, updated string
		lastUsed                     sql.NullString
	)
	if err := rows.Scan(&id, &studentID, &card.CardNumber, &balance, &state,
		&issuedAt, &expiresAt, &lastUsed, &updated); err != nil {
		return nil, err
	}

	card.ID = mealcard.CardID(id)
	card.StudentID = mealcard.StudentID(studentID)
	card.Status = mealcard.CardStatus(state)

	d, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance %q: %w", balance, err)
	}
	card.Balance = mealcard.Money{Value: d}

	if card.IssuedAt, err = time.Parse(time.RFC3339Nano, issuedAt); err != nil {
		return nil, err
	}
	if card.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt); err != nil {
		return nil, err
	}
	if card.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastUsed.String)
		if err != nil {
			return nil, err
		}
		card.LastUsedAt = &t
	}
	return &card, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) AppendTransaction(ctx context.Context, tx *mealcard.Transaction) error {
	return appendTransaction(ctx, s.db, tx)
}

func appendTransaction(ctx context.Context, q queryer, tx *mealcard.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (id, card_id, tx_type, amount, description, status, reference, meal_id, cashier_id, approved_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(tx.ID), string(tx.CardID), string(tx.Type),
		tx.Amount.Value.String(), tx.Description, string(tx.Status), tx.Reference,
		nullableString(string(tx.MealID)), nullableString(string(tx.CashierID)),
		nullableString(string(tx.ApprovedBy)),
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
		tx.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetTransaction(ctx context.Context, id mealcard.TransactionID) (*mealcard.Transaction, error) {
	return getTransaction(ctx, s.db, id)
}

func getTransaction(ctx context.Context, q queryer, id mealcard.TransactionID) (*mealcard.Transaction, error) {
	rows, err := q.QueryContext(ctx, txSelect+` WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanTransaction(rows)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *mealcard.Transaction) error {
	return updateTransaction(ctx, s.db, tx)
}

func updateTransaction(ctx context.Context, q queryer, tx *mealcard.Transaction) error {
	_, err := q.ExecContext(ctx, `
		UPDATE transactions SET status = ?, approved_by = ?, updated_at = ?
		WHERE id = ?`,
		string(tx.Status), nullableString(string(tx.ApprovedBy)),
		tx.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(tx.ID),
	)
	return err
}

func (s *Store) ListTransactions(ctx context.Context, filter mealcard.TransactionFilter) ([]*mealcard.Transaction, error) {
	return listTransactions(ctx, s.db, filter)
}

func listTransactions(ctx context.Context, q queryer, filter mealcard.TransactionFilter) ([]*mealcard.Transaction, error) {
	query := txSelect + ` WHERE 1=1`
	var args []any
	if filter.Type != nil {
		query += ` AND tx_type = ?`
		args = append(args, string(*filter.Type))
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.CardID != nil {
		query += ` AND card_id = ?`
		args = append(args, string(*filter.CardID))
	}
	if filter.From != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.From.UTC().Format(time.RFC3339Nano))
	}
	if filter.To != nil {
		query += ` AND created_at <= ?`
		args = append(args, filter.To.UTC().Format(time.RFC3339Nano))
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*mealcard.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

const txSelect = `
	SELECT id, card_id, tx_type, amount, description, status, reference, meal_id, cashier_id, approved_by, created_at, updated_at
	FROM transactions`

func scanTransaction(rows *sql.Rows) (*mealcard.Transaction, error) {
	var (
		tx                            mealcard.Transaction
		id, cardID, txType, amount    string
		status                        string
		mealID, cashierID, approvedBy sql.NullString
		createdAt, updatedAt          string
	)
	if err := rows.Scan(&id, &cardID, &txType, &amount, &tx.Description, &status,
		&tx.Reference, &mealID, &cashierID, &approvedBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	tx.ID = mealcard.TransactionID(id)
	tx.CardID = mealcard.CardID(cardID)
	tx.Type = mealcard.TransactionType(txType)
	tx.Status = mealcard.TransactionStatus(status)

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	tx.Amount = mealcard.Money{Value: d}

	if mealID.Valid {
		tx.MealID = mealcard.MealID(mealID.String)
	}
	if cashierID.Valid {
		tx.CashierID = mealcard.UserID(cashierID.String)
	}
	if approvedBy.Valid {
		tx.ApprovedBy = mealcard.UserID(approvedBy.String)
	}
	if tx.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if tx.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	return &tx, nil
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

// WithTx runs fn inside a sql.Tx; rollback on error, commit on success.
func (s *Store) WithTx(ctx context.Context, fn func(mealcard.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&txStore{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// txStore is the mealcard.Store view over a live sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveCard(ctx context.Context, card *mealcard.Card) error {
	return saveCard(ctx, ts.tx, card)
}

func (ts *txStore) GetCard(ctx context.Context, id mealcard.CardID) (*mealcard.Card, error) {
	return getCard(ctx, ts.tx, id)
}

func (ts *txStore) UpdateCard(ctx context.Context, card *mealcard.Card) error {
	return updateCard(ctx, ts.tx, card)
}

func (ts *txStore) ListCards(ctx context.Context, filter mealcard.CardFilter) ([]*mealcard.Card, error) {
	return listCards(ctx, ts.tx, filter)
}

func (ts *txStore) ActiveCardForStudent(ctx context.Context, studentID mealcard.StudentID) (*mealcard.Card, error) {
	return activeCardForStudent(ctx, ts.tx, studentID)
}

func (ts *txStore) AppendTransaction(ctx context.Context, tx *mealcard.Transaction) error {
	return appendTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) GetTransaction(ctx context.Context, id mealcard.TransactionID) (*mealcard.Transaction, error) {
	return getTransaction(ctx, ts.tx, id)
}

func (ts *txStore) UpdateTransaction(ctx context.Context, tx *mealcard.Transaction) error {
	return updateTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) ListTransactions(ctx context.Context, filter mealcard.TransactionFilter) ([]*mealcard.Transaction, error) {
	return listTransactions(ctx, ts.tx, filter)
}

func (ts *txStore) WithTx(ctx context.Context, fn func(mealcard.Store) error) error {
	// Already inside a transaction; SQLite doesn't nest them.
	return fn(ts)
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u *directory.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, student_id, avatar, password_hash, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(u.ID), u.Email, u.Name, string(u.Role),
		nullableString(string(u.StudentID)), u.Avatar, u.PasswordHash,
		boolToInt(u.IsActive),
		u.CreatedAt.UTC().Format(time.RFC3339Nano),
		u.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetUser(ctx context.Context, id mealcard.UserID) (*directory.User, error) {
	return s.queryUser(ctx, userSelect+` WHERE id = ?`, string(id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*directory.User, error) {
	return s.queryUser(ctx, userSelect+` WHERE email = ? COLLATE NOCASE`, email)
}

func (s *Store) UpdateUser(ctx context.Context, u *directory.User) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, role = ?, student_id = ?, avatar = ?, password_hash = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.Name, string(u.Role), nullableString(string(u.StudentID)),
		u.Avatar, u.PasswordHash, boolToInt(u.IsActive),
		u.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(u.ID),
	)
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]*directory.User, error) {
	rows, err := s.db.QueryContext(ctx, userSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*directory.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) queryUser(ctx context.Context, query string, args ...any) (*directory.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanUser(rows)
}

const userSelect = `
	SELECT id, email, name, role, student_id, avatar, password_hash, is_active, created_at, updated_at
	FROM users`

func scanUser(rows *sql.Rows) (*directory.User, error) {
	var (
		u                    directory.User
		id, role             string
		studentID            sql.NullString
		isActive             int
		createdAt, updatedAt string
	)
	if err := rows.Scan(&id, &u.Email, &u.Name, &role, &studentID, &u.Avatar,
		&u.PasswordHash, &isActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	u.ID = mealcard.UserID(id)
	u.Role = directory.Role(role)
	if studentID.Valid {
		u.StudentID = mealcard.StudentID(studentID.String)
	}
	u.IsActive = isActive != 0

	var err error
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// =============================================================================
// MEALS
// =============================================================================

func (s *Store) SaveMeal(ctx context.Context, m *menu.Meal) error {
	ingredients, nutrition, allergens, err := marshalMealJSON(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO meals (id, name, price, category, image, description, available, ingredients_json, nutrition_json, preparation_time, allergens_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.ID), m.Name, m.Price.Value.String(), string(m.Category),
		m.Image, m.Description, boolToInt(m.Available),
		ingredients, nutrition, m.PreparationTime, allergens,
		m.CreatedAt.UTC().Format(time.RFC3339Nano),
		m.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetMeal(ctx context.Context, id mealcard.MealID) (*menu.Meal, error) {
	rows, err := s.db.QueryContext(ctx, mealSelect+` WHERE id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanMeal(rows)
}

func (s *Store) UpdateMeal(ctx context.Context, m *menu.Meal) error {
	ingredients, nutrition, allergens, err := marshalMealJSON(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE meals SET name = ?, price = ?, category = ?, image = ?, description = ?, available = ?, ingredients_json = ?, nutrition_json = ?, preparation_time = ?, allergens_json = ?, updated_at = ?
		WHERE id = ?`,
		m.Name, m.Price.Value.String(), string(m.Category), m.Image,
		m.Description, boolToInt(m.Available),
		ingredients, nutrition, m.PreparationTime, allergens,
		m.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(m.ID),
	)
	return err
}

func (s *Store) DeleteMeal(ctx context.Context, id mealcard.MealID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM meals WHERE id = ?`, string(id))
	return err
}

func (s *Store) ListMeals(ctx context.Context) ([]*menu.Meal, error) {
	rows, err := s.db.QueryContext(ctx, mealSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*menu.Meal
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const mealSelect = `
	SELECT id, name, price, category, image, description, available, ingredients_json, nutrition_json, preparation_time, allergens_json, created_at, updated_at
	FROM meals`

func scanMeal(rows *sql.Rows) (*menu.Meal, error) {
	var (
		m                              menu.Meal
		id, price, category            string
		available                      int
		ingredients, nutrition, allerg sql.NullString
		createdAt, updatedAt           string
	)
	if err := rows.Scan(&id, &m.Name, &price, &category, &m.Image, &m.Description,
		&available, &ingredients, &nutrition, &m.PreparationTime, &allerg,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	m.ID = mealcard.MealID(id)
	m.Category = menu.Category(category)
	m.Available = available != 0

	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("corrupt price %q: %w", price, err)
	}
	m.Price = mealcard.Money{Value: d}

	if ingredients.Valid && ingredients.String != "" {
		if err := json.Unmarshal([]byte(ingredients.String), &m.Ingredients); err != nil {
			return nil, err
		}
	}
	if nutrition.Valid && nutrition.String != "" {
		if err := json.Unmarshal([]byte(nutrition.String), &m.Nutrition); err != nil {
			return nil, err
		}
	}
	if allerg.Valid && allerg.String != "" {
		if err := json.Unmarshal([]byte(allerg.String), &m.Allergens); err != nil {
			return nil, err
		}
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func marshalMealJSON(m *menu.Meal) (ingredients, nutrition, allergens string, err error) {
	b, err := json.Marshal(m.Ingredients)
	if err != nil {
		return "", "", "", err
	}
	ingredients = string(b)

	b, err = json.Marshal(m.Nutrition)
	if err != nil {
		return "", "", "", err
	}
	nutrition = string(b)

	b, err = json.Marshal(m.Allergens)
	if err != nil {
		return "", "", "", err
	}
	allergens = string(b)
	return ingredients, nutrition, allergens, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
