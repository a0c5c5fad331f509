package app

import (
	"context"
	"errors"
	"time"

	"company-quiz-service/internal/domain"
)

// CompanyService manages companies, their members and administrators, and the
// invitation/request handshake.
type CompanyService struct {
	store Store
	now   func() time.Time
}

func NewCompanyService(store Store) *CompanyService {
	return &CompanyService{store: store, now: time.Now}
}

func (s *CompanyService) Create(ctx context.Context, ownerID int64, in CompanyInput) (domain.Company, error) {
	now := s.now()
	company := domain.Company{
		OwnerID:     ownerID,
		Name:        in.Name,
		Description: in.Description,
		IsVisible:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsVisible != nil {
		company.IsVisible = *in.IsVisible
	}
	err := s.store.InTx(ctx, func(tx Store) error {
		return tx.Companies().Create(ctx, &company)
	})
	if err != nil {
		return domain.Company{}, err
	}
	return s.store.Companies().Get(ctx, company.ID)
}

func (s *CompanyService) Get(ctx context.Context, id int64) (domain.Company, error) {
	return s.store.Companies().Get(ctx, id)
}

func (s *CompanyService) List(ctx context.Context, viewerID int64, page domain.Page) ([]domain.Company, int, error) {
	return s.store.Companies().List(ctx, viewerID, page)
}

func (s *CompanyService) Update(ctx context.Context, actorID, id int64, in CompanyInput) (domain.Company, error) {
	company, err := s.ownedCompany(ctx, actorID, id)
	if err != nil {
		return domain.Company{}, err
	}
	company.Name = in.Name
	company.Description = in.Description
	if in.IsVisible != nil {
		company.IsVisible = *in.IsVisible
	}
	company.UpdatedAt = s.now()
	if err := s.store.Companies().Update(ctx, &company); err != nil {
		return domain.Company{}, err
	}
	return s.store.Companies().Get(ctx, id)
}

func (s *CompanyService) Delete(ctx context.Context, actorID, id int64) error {
	if _, err := s.ownedCompany(ctx, actorID, id); err != nil {
		return err
	}
	return s.store.Companies().Delete(ctx, id)
}

// SendInvitation invites userID to join the company.
func (s *CompanyService) SendInvitation(ctx context.Context, actorID, companyID, userID int64) (domain.Invitation, error) {
	company, err := s.adminCompany(ctx, actorID, companyID)
	if err != nil {
		return domain.Invitation{}, err
	}
	return s.openInvitation(ctx, company.ID, userID, domain.InvitationInvited)
}

// RevokeInvitation cancels a pending invitation sent by the company.
func (s *CompanyService) RevokeInvitation(ctx context.Context, actorID, companyID, userID int64) error {
	if _, err := s.adminCompany(ctx, actorID, companyID); err != nil {
		return err
	}
	return s.transition(ctx, s.store, companyID, userID, domain.InvitationInvited, domain.InvitationCanceled)
}

// AcceptRequest approves a user's join request and adds the membership atomically.
func (s *CompanyService) AcceptRequest(ctx context.Context, actorID, companyID, userID int64) error {
	if _, err := s.adminCompany(ctx, actorID, companyID); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(tx Store) error {
		if err := s.transition(ctx, tx, companyID, userID, domain.InvitationRequested, domain.InvitationAccepted); err != nil {
			return err
		}
		return tx.Companies().AddMember(ctx, companyID, userID)
	})
}

func (s *CompanyService) RejectRequest(ctx context.Context, actorID, companyID, userID int64) error {
	if _, err := s.adminCompany(ctx, actorID, companyID); err != nil {
		return err
	}
	return s.transition(ctx, s.store, companyID, userID, domain.InvitationRequested, domain.InvitationRejected)
}

// RemoveMember drops a member and any administrator role they hold. The owner stays.
func (s *CompanyService) RemoveMember(ctx context.Context, actorID, companyID, userID int64) error {
	company, err := s.adminCompany(ctx, actorID, companyID)
	if err != nil {
		return err
	}
	if userID == company.OwnerID {
		return domain.ErrOwnerImmutable
	}
	return s.dropMembership(ctx, companyID, userID)
}

// AppointAdministrator grants administrator rights to a member. Appointing the owner is a no-op.
func (s *CompanyService) AppointAdministrator(ctx context.Context, actorID, companyID, userID int64) error {
	company, err := s.ownedCompany(ctx, actorID, companyID)
	if err != nil {
		return err
	}
	if userID == company.OwnerID {
		return nil
	}
	member, err := s.store.Companies().IsMember(ctx, companyID, userID)
	if err != nil {
		return err
	}
	if !member {
		return domain.ErrNotMember
	}
	return s.store.Companies().AddAdministrator(ctx, companyID, userID)
}

func (s *CompanyService) RemoveAdministrator(ctx context.Context, actorID, companyID, userID int64) error {
	company, err := s.ownedCompany(ctx, actorID, companyID)
	if err != nil {
		return err
	}
	if userID == company.OwnerID {
		return domain.ErrOwnerImmutable
	}
	return s.store.Companies().RemoveAdministrator(ctx, companyID, userID)
}

// CompanyInvitations lists the company's invitations in the given status.
func (s *CompanyService) CompanyInvitations(ctx context.Context, actorID, companyID int64, status domain.InvitationStatus) ([]domain.Invitation, error) {
	if _, err := s.adminCompany(ctx, actorID, companyID); err != nil {
		return nil, err
	}
	return s.store.Invitations().ListByCompany(ctx, companyID, status)
}

// AcceptInvitation is the invited user's side: the invitation is accepted and the
// membership added atomically.
func (s *CompanyService) AcceptInvitation(ctx context.Context, userID, companyID int64) error {
	return s.store.InTx(ctx, func(tx Store) error {
		if err := s.transition(ctx, tx, companyID, userID, domain.InvitationInvited, domain.InvitationAccepted); err != nil {
			return err
		}
		return tx.Companies().AddMember(ctx, companyID, userID)
	})
}

func (s *CompanyService) DeclineInvitation(ctx context.Context, userID, companyID int64) error {
	return s.transition(ctx, s.store, companyID, userID, domain.InvitationInvited, domain.InvitationRejected)
}

// SendRequest asks to join the company.
func (s *CompanyService) SendRequest(ctx context.Context, userID, companyID int64) (domain.Invitation, error) {
	if _, err := s.store.Companies().Get(ctx, companyID); err != nil {
		return domain.Invitation{}, err
	}
	return s.openInvitation(ctx, companyID, userID, domain.InvitationRequested)
}

func (s *CompanyService) RevokeRequest(ctx context.Context, userID, companyID int64) error {
	return s.transition(ctx, s.store, companyID, userID, domain.InvitationRequested, domain.InvitationCanceled)
}

func (s *CompanyService) LeaveCompany(ctx context.Context, userID, companyID int64) error {
	company, err := s.store.Companies().Get(ctx, companyID)
	if err != nil {
		return err
	}
	if userID == company.OwnerID {
		return domain.ErrOwnerImmutable
	}
	return s.dropMembership(ctx, companyID, userID)
}

// UserInvitations lists the user's invitations (or requests) in the given status.
func (s *CompanyService) UserInvitations(ctx context.Context, userID int64, status domain.InvitationStatus) ([]domain.Invitation, error) {
	return s.store.Invitations().ListByUser(ctx, userID, status)
}

func (s *CompanyService) openInvitation(ctx context.Context, companyID, userID int64, status domain.InvitationStatus) (domain.Invitation, error) {
	if _, err := s.store.Users().Get(ctx, userID); err != nil {
		return domain.Invitation{}, err
	}
	var inv domain.Invitation
	err := s.store.InTx(ctx, func(tx Store) error {
		member, err := tx.Companies().IsMember(ctx, companyID, userID)
		if err != nil {
			return err
		}
		if member {
			return domain.ErrAlreadyMember
		}
		for _, pending := range []domain.InvitationStatus{domain.InvitationInvited, domain.InvitationRequested} {
			_, err := tx.Invitations().Find(ctx, companyID, userID, pending)
			if err == nil {
				return domain.ErrInvitationPending
			}
			if !errors.Is(err, domain.ErrInvitationNotFound) {
				return err
			}
		}
		now := s.now()
		inv = domain.Invitation{CompanyID: companyID, UserID: userID, Status: status, CreatedAt: now, UpdatedAt: now}
		return tx.Invitations().Create(ctx, &inv)
	})
	return inv, err
}

func (s *CompanyService) transition(ctx context.Context, store Store, companyID, userID int64, from, to domain.InvitationStatus) error {
	inv, err := store.Invitations().Find(ctx, companyID, userID, from)
	if err != nil {
		return err
	}
	return store.Invitations().UpdateStatus(ctx, inv.ID, to, s.now())
}

func (s *CompanyService) dropMembership(ctx context.Context, companyID, userID int64) error {
	return s.store.InTx(ctx, func(tx Store) error {
		member, err := tx.Companies().IsMember(ctx, companyID, userID)
		if err != nil {
			return err
		}
		if !member {
			return domain.ErrNotMember
		}
		if err := tx.Companies().RemoveAdministrator(ctx, companyID, userID); err != nil {
			return err
		}
		return tx.Companies().RemoveMember(ctx, companyID, userID)
	})
}

func (s *CompanyService) adminCompany(ctx context.Context, actorID, companyID int64) (domain.Company, error) {
	company, err := s.store.Companies().Get(ctx, companyID)
	if err != nil {
		return domain.Company{}, err
	}
	if err := requireAdmin(ctx, s.store.Companies(), company, actorID); err != nil {
		return domain.Company{}, err
	}
	return company, nil
}

func (s *CompanyService) ownedCompany(ctx context.Context, actorID, companyID int64) (domain.Company, error) {
	company, err := s.store.Companies().Get(ctx, companyID)
	if err != nil {
		return domain.Company{}, err
	}
	if company.OwnerID != actorID {
		return domain.Company{}, domain.ErrOwnerOnly
	}
	return company, nil
}

// requireAdmin lets the owner and administrators through.
func requireAdmin(ctx context.Context, companies CompanyRepository, company domain.Company, actorID int64) error {
	if company.OwnerID == actorID {
		return nil
	}
	ok, err := companies.IsAdministrator(ctx, company.ID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

func isAdmin(ctx context.Context, companies CompanyRepository, companyID, actorID int64) (bool, error) {
	company, err := companies.Get(ctx, companyID)
	if err != nil {
		return false, err
	}
	err = requireAdmin(ctx, companies, company, actorID)
	if errors.Is(err, domain.ErrForbidden) {
		return false, nil
	}
	return err == nil, err
}

func requireMember(ctx context.Context, companies CompanyRepository, companyID, userID int64) error {
	ok, err := companies.IsMember(ctx, companyID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotMember
	}
	return nil
}
