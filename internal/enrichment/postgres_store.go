package enrichment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists enrichment records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed enrichment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// Migrate creates the enrichment tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			user_id          VARCHAR(64) PRIMARY KEY,
			name             TEXT,
			email            TEXT,
			home_ip          VARCHAR(64),
			account_age_days INTEGER NOT NULL DEFAULT 0,
			vip_status       VARCHAR(32),
			country          VARCHAR(8)
		);

		CREATE TABLE IF NOT EXISTS transactions (
			trans_id      VARCHAR(64) PRIMARY KEY,
			user_id       VARCHAR(64) NOT NULL,
			amount        NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
			merchant      TEXT,
			device_ip     VARCHAR(64),
			shipping_addr TEXT,
			billing_addr  TEXT,
			ts            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_user_ts
			ON transactions (user_id, ts DESC);

		CREATE TABLE IF NOT EXISTS ip_intel (
			ip_address       VARCHAR(64) PRIMARY KEY,
			reputation_score INTEGER NOT NULL DEFAULT 0,
			isp              TEXT,
			is_proxy         BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS kyc_events (
			user_id    VARCHAR(64) NOT NULL,
			kyc_status VARCHAR(32),
			kyc_level  VARCHAR(32),
			event_ts   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_kyc_events_user_ts
			ON kyc_events (user_id, event_ts DESC);

		CREATE TABLE IF NOT EXISTS disputes (
			user_id           VARCHAR(64) PRIMARY KEY,
			dispute_count_90d INTEGER NOT NULL DEFAULT 0,
			loss_amount_90d   NUMERIC(14,2) NOT NULL DEFAULT 0,
			last_dispute_date DATE
		);

		CREATE TABLE IF NOT EXISTS chargebacks (
			trans_id          VARCHAR(64) PRIMARY KEY,
			chargeback_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
			reason_code       VARCHAR(32),
			chargeback_date   DATE
		);
	`)
	return err
}

func (s *PostgresStore) GetTransaction(ctx context.Context, transID string) (*Transaction, error) {
	var t Transaction
	err := s.db.QueryRowContext(ctx, `
		SELECT trans_id, user_id, amount, merchant, device_ip, shipping_addr, billing_addr, ts
		FROM transactions
		WHERE trans_id = $1
	`, transID).Scan(
		&t.TransID, &t.UserID, &t.Amount, &t.Merchant,
		&t.DeviceIP, &t.ShippingAddr, &t.BillingAddr, &t.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*UserProfile, error) {
	var u UserProfile
	var name, email sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, home_ip, account_age_days, vip_status, country
		FROM users
		WHERE user_id = $1
	`, userID).Scan(&u.UserID, &name, &email, &u.HomeIP, &u.AccountAgeDays, &u.VIPStatus, &u.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Name = name.String
	u.Email = email.String
	return &u, nil
}

func (s *PostgresStore) GetUserHistory(ctx context.Context, userID string) (*UserHistory, error) {
	hist := &UserHistory{UserID: userID}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE ts >= NOW() - INTERVAL '1 hour'),
			COUNT(*) FILTER (WHERE ts >= NOW() - INTERVAL '24 hours')
		FROM transactions
		WHERE user_id = $1
	`, userID).Scan(&hist.Velocity.TxnCount1h, &hist.Velocity.TxnCount24h)
	if err != nil {
		return nil, fmt.Errorf("failed to get velocity: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT trans_id, user_id, amount, merchant, device_ip, shipping_addr, billing_addr, ts
		FROM transactions
		WHERE user_id = $1
		ORDER BY ts DESC
		LIMIT 20
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.TransID, &t.UserID, &t.Amount, &t.Merchant,
			&t.DeviceIP, &t.ShippingAddr, &t.BillingAddr, &t.Timestamp,
		); err != nil {
			continue
		}
		hist.LastTransactions = append(hist.LastTransactions, t)
	}
	return hist, nil
}

func (s *PostgresStore) GetIPIntel(ctx context.Context, ip string) (*IPIntel, error) {
	var i IPIntel
	err := s.db.QueryRowContext(ctx, `
		SELECT ip_address, reputation_score, isp, is_proxy
		FROM ip_intel
		WHERE ip_address = $1
	`, ip).Scan(&i.IPAddress, &i.ReputationScore, &i.ISP, &i.IsProxy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ip intel: %w", err)
	}
	return &i, nil
}

func (s *PostgresStore) GetLatestKYC(ctx context.Context, userID string) (*KYCStatus, error) {
	var k KYCStatus
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, kyc_status, kyc_level, event_ts
		FROM kyc_events
		WHERE user_id = $1
		ORDER BY event_ts DESC
		LIMIT 1
	`, userID).Scan(&k.UserID, &k.Status, &k.Level, &k.EventTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kyc: %w", err)
	}
	return &k, nil
}

func (s *PostgresStore) GetDisputes(ctx context.Context, userID string) (*DisputeSummary, error) {
	var d DisputeSummary
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, dispute_count_90d, loss_amount_90d, last_dispute_date
		FROM disputes
		WHERE user_id = $1
	`, userID).Scan(&d.UserID, &d.DisputeCount90d, &d.LossAmount90d, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get disputes: %w", err)
	}
	if last.Valid {
		d.LastDisputeDate = &last.Time
	}
	return &d, nil
}

func (s *PostgresStore) TransactionVolume(ctx context.Context, since time.Time) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(amount) FROM transactions WHERE ts >= $1
	`, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transaction volume: %w", err)
	}
	return total.Float64, nil
}

func (s *PostgresStore) ChargebackTotal(ctx context.Context) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(chargeback_amount) FROM chargebacks WHERE chargeback_date IS NOT NULL
	`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum chargebacks: %w", err)
	}
	return total.Float64, nil
}

func (s *PostgresStore) PutTransaction(ctx context.Context, t *Transaction) error {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (trans_id, user_id, amount, merchant, device_ip, shipping_addr, billing_addr, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (trans_id) DO UPDATE SET
			user_id = EXCLUDED.user_id, amount = EXCLUDED.amount, merchant = EXCLUDED.merchant,
			device_ip = EXCLUDED.device_ip, shipping_addr = EXCLUDED.shipping_addr,
			billing_addr = EXCLUDED.billing_addr, ts = EXCLUDED.ts
	`, t.TransID, t.UserID, t.Amount, t.Merchant, t.DeviceIP, t.ShippingAddr, t.BillingAddr, ts)
	if err != nil {
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutUser(ctx context.Context, u *UserProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, name, email, home_ip, account_age_days, vip_status, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email, home_ip = EXCLUDED.home_ip,
			account_age_days = EXCLUDED.account_age_days, vip_status = EXCLUDED.vip_status,
			country = EXCLUDED.country
	`, u.UserID, u.Name, u.Email, u.HomeIP, u.AccountAgeDays, u.VIPStatus, u.Country)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutIPIntel(ctx context.Context, i *IPIntel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ip_intel (ip_address, reputation_score, isp, is_proxy)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ip_address) DO UPDATE SET
			reputation_score = EXCLUDED.reputation_score, isp = EXCLUDED.isp,
			is_proxy = EXCLUDED.is_proxy
	`, i.IPAddress, i.ReputationScore, i.ISP, i.IsProxy)
	if err != nil {
		return fmt.Errorf("failed to upsert ip intel: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutKYC(ctx context.Context, k *KYCStatus) error {
	ts := k.EventTime
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kyc_events (user_id, kyc_status, kyc_level, event_ts)
		VALUES ($1, $2, $3, $4)
	`, k.UserID, k.Status, k.Level, ts)
	if err != nil {
		return fmt.Errorf("failed to insert kyc event: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutDisputes(ctx context.Context, d *DisputeSummary) error {
	var last sql.NullTime
	if d.LastDisputeDate != nil {
		last = sql.NullTime{Time: *d.LastDisputeDate, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disputes (user_id, dispute_count_90d, loss_amount_90d, last_dispute_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			dispute_count_90d = EXCLUDED.dispute_count_90d,
			loss_amount_90d = EXCLUDED.loss_amount_90d,
			last_dispute_date = EXCLUDED.last_dispute_date
	`, d.UserID, d.DisputeCount90d, d.LossAmount90d, last)
	if err != nil {
		return fmt.Errorf("failed to upsert disputes: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutChargeback(ctx context.Context, c *Chargeback) error {
	var date sql.NullTime
	if c.ChargebackDate != nil {
		date = sql.NullTime{Time: *c.ChargebackDate, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chargebacks (trans_id, chargeback_amount, reason_code, chargeback_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trans_id) DO UPDATE SET
			chargeback_amount = EXCLUDED.chargeback_amount,
			reason_code = EXCLUDED.reason_code,
			chargeback_date = EXCLUDED.chargeback_date
	`, c.TransID, c.Amount, c.ReasonCode, date)
	if err != nil {
		return fmt.Errorf("failed to upsert chargeback: %w", err)
	}
	return nil
}
