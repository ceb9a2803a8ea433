/**
 * @description
 * PostgreSQL implementation of the repository interfaces, built on pgx. It
 * holds all SQL for the users, cards and payments tables and translates
 * driver-level outcomes (no rows, unique violations) into the sentinel
 * errors the application layer matches on.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5 (+pgconn, pgxpool): PostgreSQL driver.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vaultpay/payments-backend/internal/domain"
)

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrEmailTaken              = errors.New("email already registered")
	ErrProfileNotFound         = errors.New("profile not found")
	ErrProfileExists           = errors.New("a profile already exists for this user")
	ErrCardNotFound            = errors.New("card not found")
	ErrDuplicateCard           = errors.New("an active card with this last four already exists for the owner")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrDuplicateIdempotencyKey = errors.New("a payment with this idempotency key already exists")
	ErrPaymentAlreadyFinal     = errors.New("payment is already in a terminal state")
)

const uniqueViolation = "23505"

// PostgresRepository is the concrete Repository backed by a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return constraint == "" || pgErr.ConstraintName == constraint
	}
	return false
}

// --- users ---

func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, hashed_password, role, is_active, created_at)
		VALUES ($1, lower($2), $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.HashedPassword, user.Role, user.IsActive, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, hashed_password, role, is_active, created_at, updated_at
		FROM users
		WHERE lower(email) = lower($1) AND deleted_at IS NULL
	`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, hashed_password, role, is_active, created_at, updated_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.scanUser(r.db.QueryRow(ctx, query, userID))
}

func (r *PostgresRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.HashedPassword, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	query := `
		SELECT id, email, hashed_password, role, is_active, created_at, updated_at
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Email, &user.HashedPassword, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = lower($2), hashed_password = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, user.ID, user.Email, user.HashedPassword, user.IsActive)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrEmailTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) SoftDeleteUser(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE users SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// --- profiles ---

const profileColumns = `id, user_id, name, last_name, ci, phone, address, age, created_at, updated_at`

func (r *PostgresRepository) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, user_id, name, last_name, ci, phone, address, age, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		profile.ID, profile.UserID, profile.Name, profile.LastName, profile.CI,
		profile.Phone, profile.Address, profile.Age, profile.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "profiles_user_live_key") {
			return ErrProfileExists
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1 AND deleted_at IS NULL`
	var p domain.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.Name, &p.LastName, &p.CI, &p.Phone, &p.Address, &p.Age,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Name, &p.LastName, &p.CI, &p.Phone, &p.Address, &p.Age,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, profile *domain.Profile) error {
	query := `
		UPDATE profiles
		SET name = $2, last_name = $3, ci = $4, phone = $5, address = $6, age = $7, updated_at = NOW()
		WHERE user_id = $1 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query,
		profile.UserID, profile.Name, profile.LastName, profile.CI,
		profile.Phone, profile.Address, profile.Age,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *PostgresRepository) SoftDeleteProfile(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE profiles SET deleted_at = NOW(), updated_at = NOW() WHERE user_id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// --- cards ---

const cardColumns = `id, user_id, card_holder_name, brand, last_four, masked_number,
	expiration_month, expiration_year, is_active, created_at, updated_at`

func (r *PostgresRepository) CreateCard(ctx context.Context, card *domain.Card) error {
	query := `
		INSERT INTO cards (id, user_id, card_holder_name, brand, last_four, masked_number,
			expiration_month, expiration_year, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		card.ID, card.UserID, card.CardHolderName, card.Brand, card.LastFour, card.MaskedNumber,
		card.ExpirationMonth, card.ExpirationYear, card.IsActive, card.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "cards_owner_last_four_live_key") {
			return ErrDuplicateCard
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) FindCardByID(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 AND deleted_at IS NULL`
	return r.scanCard(r.db.QueryRow(ctx, query, cardID))
}

func (r *PostgresRepository) FindActiveCardByOwnerAndLastFour(ctx context.Context, userID uuid.UUID, lastFour string) (*domain.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE user_id = $1 AND last_four = $2 AND is_active AND deleted_at IS NULL
	`
	return r.scanCard(r.db.QueryRow(ctx, query, userID, lastFour))
}

func (r *PostgresRepository) scanCard(row pgx.Row) (*domain.Card, error) {
	var card domain.Card
	err := row.Scan(
		&card.ID, &card.UserID, &card.CardHolderName, &card.Brand, &card.LastFour, &card.MaskedNumber,
		&card.ExpirationMonth, &card.ExpirationYear, &card.IsActive, &card.CreatedAt, &card.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (r *PostgresRepository) ListCardsByOwner(ctx context.Context, userID uuid.UUID) ([]domain.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectCards(rows)
}

func (r *PostgresRepository) ListCards(ctx context.Context) ([]domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectCards(rows)
}

func (r *PostgresRepository) collectCards(rows pgx.Rows) ([]domain.Card, error) {
	var cards []domain.Card
	for rows.Next() {
		var card domain.Card
		if err := rows.Scan(
			&card.ID, &card.UserID, &card.CardHolderName, &card.Brand, &card.LastFour, &card.MaskedNumber,
			&card.ExpirationMonth, &card.ExpirationYear, &card.IsActive, &card.CreatedAt, &card.UpdatedAt,
		); err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (r *PostgresRepository) UpdateCard(ctx context.Context, card *domain.Card) error {
	query := `
		UPDATE cards
		SET card_holder_name = $2, expiration_month = $3, expiration_year = $4,
			is_active = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query,
		card.ID, card.CardHolderName, card.ExpirationMonth, card.ExpirationYear, card.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (r *PostgresRepository) SoftDeleteCard(ctx context.Context, cardID uuid.UUID) error {
	query := `UPDATE cards SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, cardID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCardNotFound
	}
	return nil
}

// --- payments ---

const paymentColumns = `id, user_id, card_id, amount, currency, status, status_reason,
	processor_reference, idempotency_key, processed_at, created_at, updated_at`

func (r *PostgresRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, user_id, card_id, amount, currency, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		payment.ID, payment.UserID, payment.CardID, payment.Amount, payment.Currency,
		payment.Status, payment.IdempotencyKey, payment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "payments_idempotency_key_live_key") {
			return ErrDuplicateIdempotencyKey
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND deleted_at IS NULL`
	return r.scanPayment(r.db.QueryRow(ctx, query, paymentID))
}

func (r *PostgresRepository) FindPaymentByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE idempotency_key = $1 AND deleted_at IS NULL`
	return r.scanPayment(r.db.QueryRow(ctx, query, key))
}

func (r *PostgresRepository) scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.UserID, &p.CardID, &p.Amount, &p.Currency, &p.Status, &p.StatusReason,
		&p.ProcessorReference, &p.IdempotencyKey, &p.ProcessedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) ListPaymentsByOwner(ctx context.Context, userID uuid.UUID) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectPayments(rows)
}

func (r *PostgresRepository) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectPayments(rows)
}

func (r *PostgresRepository) collectPayments(rows pgx.Rows) ([]domain.Payment, error) {
	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.CardID, &p.Amount, &p.Currency, &p.Status, &p.StatusReason,
			&p.ProcessorReference, &p.IdempotencyKey, &p.ProcessedAt, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// FinalizePayment moves a pending payment to its terminal state. The WHERE
// clause keeps the guard in the database: once terminal, the row can never be
// rewritten by a late or duplicate finalize.
func (r *PostgresRepository) FinalizePayment(ctx context.Context, paymentID uuid.UUID, final domain.PaymentFinalization) (*domain.Payment, error) {
	query := `
		UPDATE payments
		SET status = $2, status_reason = $3, processor_reference = $4, processed_at = $5, updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND deleted_at IS NULL
		RETURNING ` + paymentColumns + `
	`
	row := r.db.QueryRow(ctx, query,
		paymentID, final.Status, final.StatusReason, final.ProcessorReference, final.ProcessedAt,
	)
	payment, err := r.scanPayment(row)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			// Either the row is gone or it is no longer pending; look again
			// to tell the two apart.
			existing, lookupErr := r.FindPaymentByID(ctx, paymentID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing.Status.Terminal() {
				return nil, ErrPaymentAlreadyFinal
			}
		}
		return nil, err
	}
	return payment, nil
}

func (r *PostgresRepository) SoftDeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	query := `UPDATE payments SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, paymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// ListPendingOlderThan returns live payments that have sat in pending for
// longer than the threshold. Reconciliation tooling owns what happens next.
func (r *PostgresRepository) ListPendingOlderThan(ctx context.Context, threshold time.Duration) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending' AND deleted_at IS NULL AND created_at < NOW() - ($1 * INTERVAL '1 second')
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, int64(threshold.Seconds()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectPayments(rows)
}
