package credentials

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

type tokenRecord struct {
	bun.BaseModel `bun:"table:linear_tokens"`

	OrganizationID   string    `bun:"organization_id,pk"`
	OrganizationName string    `bun:"organization_name,notnull,default:''"`
	AccessToken      string    `bun:"access_token,notnull"`
	TokenType        string    `bun:"token_type,notnull,default:''"`
	Scopes           string    `bun:"scopes,notnull,default:''"`
	ExpiresAt        time.Time `bun:"expires_at,nullzero"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull"`
}

func newTokenRecord(c *Credential, now time.Time) *tokenRecord {
	created := c.CreatedAt
	if created.IsZero() {
		created = now
	}
	return &tokenRecord{
		OrganizationID:   c.OrganizationID,
		OrganizationName: c.OrganizationName,
		AccessToken:      c.AccessToken,
		TokenType:        c.TokenType,
		Scopes:           strings.Join(c.Scopes, " "),
		ExpiresAt:        c.ExpiresAt.UTC(),
		CreatedAt:        created.UTC(),
		UpdatedAt:        now,
	}
}

func (r *tokenRecord) toDomain() *Credential {
	c := &Credential{
		OrganizationID:   r.OrganizationID,
		OrganizationName: r.OrganizationName,
		AccessToken:      r.AccessToken,
		TokenType:        r.TokenType,
		ExpiresAt:        r.ExpiresAt,
		CreatedAt:        r.CreatedAt,
	}
	if r.Scopes != "" {
		c.Scopes = strings.Fields(r.Scopes)
	}
	return c
}

// SQLStore keeps credentials in the linear_tokens table of a sqlite3 or postgres database.
type SQLStore struct {
	db *bun.DB
}

// OpenSQLStore opens the database identified by driver ("sqlite3" or "postgres") and dsn.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var dialect schema.Dialect
	switch driver {
	case "sqlite3":
		dialect = sqlitedialect.New()
	case "postgres":
		dialect = pgdialect.New()
	default:
		return nil, errors.Errorf("unsupported SQL driver: %s", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	if driver == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}

	store, err := NewSQLStore(ctx, bun.NewDB(sqlDB, dialect))
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps db and creates the linear_tokens table when missing.
func NewSQLStore(ctx context.Context, db *bun.DB) (*SQLStore, error) {
	if _, err := db.NewCreateTable().Model((*tokenRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to create linear_tokens table")
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, organizationID string) (*Credential, error) {
	record := new(tokenRecord)
	err := s.db.NewSelect().
		Model(record).
		Where("organization_id = ?", organizationID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, organizationID)
		}
		return nil, errors.Wrap(err, "failed to select credential")
	}
	return record.toDomain(), nil
}

func (s *SQLStore) Put(ctx context.Context, credential *Credential) error {
	if credential == nil || credential.OrganizationID == "" {
		return errors.New("credential without organization id")
	}
	record := newTokenRecord(credential, time.Now().UTC())
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (organization_id) DO UPDATE").
		Set("organization_name = EXCLUDED.organization_name").
		Set("access_token = EXCLUDED.access_token").
		Set("token_type = EXCLUDED.token_type").
		Set("scopes = EXCLUDED.scopes").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to upsert credential")
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
