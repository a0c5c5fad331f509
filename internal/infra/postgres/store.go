package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	usernameConstraint     = "users_username_key"
	activeInviteConstraint = "invitations_active_pair_idx"
	openAttemptConstraint  = "quiz_attempts_open_pair_idx"
)

// Store implements app.Store on Postgres through bun.
type Store struct {
	db   bun.IDB
	root *bun.DB
}

var _ app.Store = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, root: db}
}

// Open connects bun to Postgres with the pgdriver connector.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (s *Store) Users() app.UserRepository { return userRepo{s.db} }
func (s *Store) Companies() app.CompanyRepository { return companyRepo{s.db} }
func (s *Store) Invitations() app.InvitationRepository { return invitationRepo{s.db} }
func (s *Store) Quizzes() app.QuizRepository { return quizRepo{s.db} }
func (s *Store) Attempts() app.AttemptRepository { return attemptRepo{s.db} }
func (s *Store) Notifications() app.NotificationRepository { return notificationRepo{s.db} }

// InTx runs fn inside a database transaction. Nested calls reuse the open transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx app.Store) error) error {
	if _, ok := s.db.(bun.Tx); ok {
		return fn(s)
	}
	return s.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(&Store{db: tx, root: s.root})
	})
}

// notFound maps sql.ErrNoRows to the given sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

// violates reports whether err is a unique violation of the named constraint or index.
func violates(err error, constraint string) bool {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Field('C') == "23505" && pgErr.Field('n') == constraint
}

// foreignKeyMissing reports whether err is a foreign key violation.
func foreignKeyMissing(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23503"
}

func affected(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}

func page(q *bun.SelectQuery, p domain.Page) *bun.SelectQuery {
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	return q
}

type userRepo struct{ db bun.IDB }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.NewInsert().Model(user).Exec(ctx)
	if violates(err, usernameConstraint) {
		return domain.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r userRepo) Get(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := r.db.NewSelect().Model(&u).Where("id = ?", id).Scan(ctx)
	return u, notFound(err, domain.ErrUserNotFound)
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := r.db.NewSelect().Model(&u).Where("username = ?", username).Scan(ctx)
	return u, notFound(err, domain.ErrUserNotFound)
}

func (r userRepo) List(ctx context.Context, p domain.Page) ([]domain.User, int, error) {
	users := make([]domain.User, 0)
	total, err := page(r.db.NewSelect().Model(&users).Order("created_at ASC", "id ASC"), p).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r userRepo) Update(ctx context.Context, user *domain.User) error {
	res, err := r.db.NewUpdate().Model(user).WherePK().Exec(ctx)
	if violates(err, usernameConstraint) {
		return domain.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return affected(res, domain.ErrUserNotFound)
}

func (r userRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*domain.User)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return affected(res, domain.ErrUserNotFound)
}

type companyRepo struct{ db bun.IDB }

func (r companyRepo) Create(ctx context.Context, company *domain.Company) error {
	_, err := r.db.NewInsert().Model(company).Exec(ctx)
	if foreignKeyMissing(err) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return r.assertOwner(ctx, company.ID, company.OwnerID)
}

func (r companyRepo) assertOwner(ctx context.Context, companyID, ownerID int64) error {
	if err := r.AddMember(ctx, companyID, ownerID); err != nil {
		return err
	}
	return r.AddAdministrator(ctx, companyID, ownerID)
}

func (r companyRepo) Get(ctx context.Context, id int64) (domain.Company, error) {
	var c domain.Company
	if err := r.db.NewSelect().Model(&c).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Company{}, notFound(err, domain.ErrCompanyNotFound)
	}
	if err := r.hydrate(ctx, &c); err != nil {
		return domain.Company{}, err
	}
	return c, nil
}

func (r companyRepo) hydrate(ctx context.Context, c *domain.Company) error {
	c.MemberIDs = make([]int64, 0)
	err := r.db.NewSelect().Model((*domain.CompanyMember)(nil)).
		Column("user_id").Where("company_id = ?", c.ID).Order("user_id ASC").
		Scan(ctx, &c.MemberIDs)
	if err != nil {
		return fmt.Errorf("company members: %w", err)
	}
	c.AdministratorIDs = make([]int64, 0)
	err = r.db.NewSelect().Model((*domain.CompanyAdministrator)(nil)).
		Column("user_id").Where("company_id = ?", c.ID).Order("user_id ASC").
		Scan(ctx, &c.AdministratorIDs)
	if err != nil {
		return fmt.Errorf("company administrators: %w", err)
	}
	return nil
}

func (r companyRepo) List(ctx context.Context, viewerID int64, p domain.Page) ([]domain.Company, int, error) {
	companies := make([]domain.Company, 0)
	q := r.db.NewSelect().Model(&companies).
		Where("?TableAlias.is_visible OR EXISTS (SELECT 1 FROM company_members m WHERE m.company_id = ?TableAlias.id AND m.user_id = ?)", viewerID).
		Order("id ASC")
	total, err := page(q, p).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	for i := range companies {
		if err := r.hydrate(ctx, &companies[i]); err != nil {
			return nil, 0, err
		}
	}
	return companies, total, nil
}

func (r companyRepo) ListAll(ctx context.Context) ([]domain.Company, error) {
	companies := make([]domain.Company, 0)
	if err := r.db.NewSelect().Model(&companies).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}

func (r companyRepo) Update(ctx context.Context, company *domain.Company) error {
	res, err := r.db.NewUpdate().Model(company).
		Column("name", "description", "is_visible", "updated_at").
		WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if err := affected(res, domain.ErrCompanyNotFound); err != nil {
		return err
	}
	return r.assertOwner(ctx, company.ID, company.OwnerID)
}

func (r companyRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*domain.Company)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	return affected(res, domain.ErrCompanyNotFound)
}

func (r companyRepo) AddMember(ctx context.Context, companyID, userID int64) error {
	row := &domain.CompanyMember{CompanyID: companyID, UserID: userID}
	_, err := r.db.NewInsert().Model(row).On("CONFLICT DO NOTHING").Exec(ctx)
	if foreignKeyMissing(err) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r companyRepo) RemoveMember(ctx context.Context, companyID, userID int64) error {
	_, err := r.db.NewDelete().Model((*domain.CompanyMember)(nil)).
		Where("company_id = ? AND user_id = ?", companyID, userID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (r companyRepo) IsMember(ctx context.Context, companyID, userID int64) (bool, error) {
	return r.db.NewSelect().Model((*domain.CompanyMember)(nil)).
		Where("company_id = ? AND user_id = ?", companyID, userID).Exists(ctx)
}

func (r companyRepo) Members(ctx context.Context, companyID int64) ([]domain.User, error) {
	users := make([]domain.User, 0)
	err := r.db.NewSelect().Model(&users).
		Where("id IN (SELECT user_id FROM company_members WHERE company_id = ?)", companyID).
		Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return users, nil
}

func (r companyRepo) AddAdministrator(ctx context.Context, companyID, userID int64) error {
	row := &domain.CompanyAdministrator{CompanyID: companyID, UserID: userID}
	_, err := r.db.NewInsert().Model(row).On("CONFLICT DO NOTHING").Exec(ctx)
	if foreignKeyMissing(err) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("add administrator: %w", err)
	}
	return nil
}

func (r companyRepo) RemoveAdministrator(ctx context.Context, companyID, userID int64) error {
	_, err := r.db.NewDelete().Model((*domain.CompanyAdministrator)(nil)).
		Where("company_id = ? AND user_id = ?", companyID, userID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove administrator: %w", err)
	}
	return nil
}

func (r companyRepo) IsAdministrator(ctx context.Context, companyID, userID int64) (bool, error) {
	return r.db.NewSelect().Model((*domain.CompanyAdministrator)(nil)).
		Where("company_id = ? AND user_id = ?", companyID, userID).Exists(ctx)
}
