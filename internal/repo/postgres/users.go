package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/taxdesk/internal/domain/user"
	"github.com/geocoder89/taxdesk/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already in use")
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

const userColumns = `id, first_name, last_name, email, password_hash,
	pan_number, aadhar_number, gst_number, account_number, ifsc_code, bank_name, bank_branch,
	address, city, state, pincode, company_name, business_type, phone_number, alternate_phone,
	created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	p := &u.Profile

	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&p.PANNumber, &p.AadharNumber, &p.GSTNumber, &p.AccountNumber, &p.IFSCCode, &p.BankName, &p.BankBranch,
		&p.Address, &p.City, &p.State, &p.Pincode, &p.CompanyName, &p.BusinessType, &p.PhoneNumber, &p.AlternatePhone,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, fmt.Errorf("%w: %w", ErrUserNotFound, err)
		}
		return user.User{}, err
	}
	return u, nil
}

// Create inserts a new account. A concurrent registration that wins the race
// on the unique email index surfaces as ErrEmailAlreadyUsed.
func (r *UsersRepo) Create(ctx context.Context, firstName, lastName, email, passwordHash string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        user.NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := observe(r.prom, "users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, first_name, last_name, email, password_hash, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = observe(r.prom, "users.get_by_email", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			user.NormalizeEmail(email),
		))
		return scanErr
	})
	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (u user.User, err error) {
	if _, parseErr := uuid.Parse(id); parseErr != nil {
		return user.User{}, ErrUserNotFound
	}

	err = observe(r.prom, "users.get_by_id", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return scanErr
	})
	return u, err
}

// UpdateProfile writes the editable fields of u and returns the stored row.
func (r *UsersRepo) UpdateProfile(ctx context.Context, u user.User) (updated user.User, err error) {
	p := u.Profile

	err = observe(r.prom, "users.update_profile", func() error {
		var scanErr error
		updated, scanErr = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users SET
				first_name = $2, last_name = $3, email = $4,
				pan_number = $5, aadhar_number = $6, gst_number = $7, account_number = $8,
				ifsc_code = $9, bank_name = $10, bank_branch = $11, address = $12, city = $13,
				state = $14, pincode = $15, company_name = $16, business_type = $17,
				phone_number = $18, alternate_phone = $19, updated_at = now()
			WHERE id = $1
			RETURNING `+userColumns,
			u.ID, u.FirstName, u.LastName, u.Email,
			p.PANNumber, p.AadharNumber, p.GSTNumber, p.AccountNumber,
			p.IFSCCode, p.BankName, p.BankBranch, p.Address, p.City,
			p.State, p.Pincode, p.CompanyName, p.BusinessType,
			p.PhoneNumber, p.AlternatePhone,
		))
		return scanErr
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return updated, nil
}
