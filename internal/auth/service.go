package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"metatradex/internal/model"
	"metatradex/internal/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var ErrEmailTaken = errors.New("email already registered")

// mapRegisterError hides the raw unique-violation detail behind a
// sentinel the handler can translate to a conflict response.
func mapRegisterError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

type Service struct {
	pool   *pgxpool.Pool
	issuer string
	secret []byte
	ttl    time.Duration
}

func NewService(pool *pgxpool.Pool, issuer string, secret []byte, ttl time.Duration) *Service {
	return &Service{pool: pool, issuer: issuer, secret: secret, ttl: ttl}
}

func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", errors.New("email and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)
	var userID string
	err = tx.QueryRow(ctx,
		"insert into profiles (email, first_name, last_name, kyc_status) values ($1, $2, $3, 'none') returning id",
		email, strings.TrimSpace(firstName), strings.TrimSpace(lastName)).Scan(&userID)
	if err != nil {
		return "", mapRegisterError(err)
	}
	_, err = tx.Exec(ctx, "insert into user_credentials (user_id, password_hash) values ($1, $2)", userID, string(hash))
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var userID string
	var hash string
	err := s.pool.QueryRow(ctx,
		"select p.id, c.password_hash from profiles p join user_credentials c on c.user_id = p.id where p.email = $1",
		email).Scan(&userID, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errors.New("invalid credentials")
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}
	return s.SignToken(userID)
}

func (s *Service) SignToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *Service) ParseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Issuer != s.issuer {
		return "", errors.New("invalid issuer")
	}
	if claims.Subject == "" {
		return "", errors.New("invalid subject")
	}
	return claims.Subject, nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	var p model.Profile
	var override *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(country, ''),
			is_admin, kyc_status, COALESCE(id_document_url, ''), trade_override_status, created_at
		FROM profiles
		WHERE id = $1
	`, userID).Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Country,
		&p.IsAdmin, &p.KYCStatus, &p.IDDocumentURL, &override, &p.CreatedAt)
	if err != nil {
		return model.Profile{}, err
	}
	if override != nil {
		outcome := types.TradeOutcome(*override)
		p.TradeOverrideStatus = &outcome
	}
	return p, nil
}

func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool
	err := s.pool.QueryRow(ctx, "SELECT is_admin FROM profiles WHERE id = $1", userID).Scan(&isAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return isAdmin, nil
}

type KYCSubmission struct {
	FirstName     string
	LastName      string
	Country       string
	IDDocumentURL string
}

// SubmitKYC moves the profile to pending review. A rejected profile may
// resubmit; an approved profile keeps its status.
func (s *Service) SubmitKYC(ctx context.Context, userID string, sub KYCSubmission) error {
	if strings.TrimSpace(sub.IDDocumentURL) == "" {
		return errors.New("id document is required")
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE profiles
		SET first_name = $2,
			last_name = $3,
			country = $4,
			id_document_url = $5,
			kyc_status = 'pending'
		WHERE id = $1
		  AND kyc_status <> 'approved'
	`, userID, strings.TrimSpace(sub.FirstName), strings.TrimSpace(sub.LastName),
		strings.TrimSpace(sub.Country), strings.TrimSpace(sub.IDDocumentURL))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("kyc is already approved")
	}
	return nil
}
