package memory

import (
	"context"
	"sort"
	"time"

	"company-quiz-service/internal/domain"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.lock()
	defer r.s.unlock()
	for _, u := range r.s.st.users {
		if u.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	user.ID = r.s.st.id()
	r.s.st.users[user.ID] = *user
	return nil
}

func (r userRepo) Get(_ context.Context, id int64) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.st.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (r userRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.st.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r userRepo) List(_ context.Context, page domain.Page) ([]domain.User, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := byID(r.s.st.users, nil)
	return paginate(all, page), len(all), nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for _, u := range r.s.st.users {
		if u.ID != user.ID && u.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	r.s.st.users[user.ID] = *user
	return nil
}

func (r userRepo) Delete(_ context.Context, id int64) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	r.s.st.deleteUser(id)
	return nil
}

type companyRepo struct{ s *Store }

func (r companyRepo) Create(_ context.Context, company *domain.Company) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.users[company.OwnerID]; !ok {
		return domain.ErrUserNotFound
	}
	company.ID = r.s.st.id()
	stored := *company
	stored.MemberIDs, stored.AdministratorIDs = nil, nil
	r.s.st.companies[company.ID] = stored
	r.s.st.addTo(r.s.st.members, company.ID, company.OwnerID)
	r.s.st.addTo(r.s.st.administrators, company.ID, company.OwnerID)
	return nil
}

func (r companyRepo) Get(_ context.Context, id int64) (domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.st.companies[id]
	if !ok {
		return domain.Company{}, domain.ErrCompanyNotFound
	}
	return r.hydrate(c), nil
}

func (r companyRepo) hydrate(c domain.Company) domain.Company {
	c.MemberIDs = sortedIDs(r.s.st.members[c.ID])
	c.AdministratorIDs = sortedIDs(r.s.st.administrators[c.ID])
	return c
}

func (r companyRepo) List(_ context.Context, viewerID int64, page domain.Page) ([]domain.Company, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := byID(r.s.st.companies, func(c domain.Company) bool {
		return c.IsVisible || r.s.st.isMember(c.ID, viewerID)
	})
	out := paginate(all, page)
	for i := range out {
		out[i] = r.hydrate(out[i])
	}
	return out, len(all), nil
}

func (r companyRepo) ListAll(_ context.Context) ([]domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return byID(r.s.st.companies, nil), nil
}

func (r companyRepo) Update(_ context.Context, company *domain.Company) error {
	r.s.lock()
	defer r.s.unlock()
	current, ok := r.s.st.companies[company.ID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	current.Name = company.Name
	current.Description = company.Description
	current.IsVisible = company.IsVisible
	current.UpdatedAt = company.UpdatedAt
	r.s.st.companies[company.ID] = current
	r.s.st.addTo(r.s.st.members, current.ID, current.OwnerID)
	r.s.st.addTo(r.s.st.administrators, current.ID, current.OwnerID)
	return nil
}

func (r companyRepo) Delete(_ context.Context, id int64) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.companies[id]; !ok {
		return domain.ErrCompanyNotFound
	}
	r.s.st.deleteCompany(id)
	return nil
}

func (r companyRepo) AddMember(_ context.Context, companyID, userID int64) error {
	r.s.lock()
	defer r.s.unlock()
	if err := r.checkPair(companyID, userID); err != nil {
		return err
	}
	r.s.st.addTo(r.s.st.members, companyID, userID)
	return nil
}

func (r companyRepo) RemoveMember(_ context.Context, companyID, userID int64) error {
	r.s.lock()
	defer r.s.unlock()
	delete(r.s.st.members[companyID], userID)
	return nil
}

func (r companyRepo) IsMember(_ context.Context, companyID, userID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.st.isMember(companyID, userID), nil
}

func (r companyRepo) Members(_ context.Context, companyID int64) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := sortedIDs(r.s.st.members[companyID])
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.st.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r companyRepo) AddAdministrator(_ context.Context, companyID, userID int64) error {
	r.s.lock()
	defer r.s.unlock()
	if err := r.checkPair(companyID, userID); err != nil {
		return err
	}
	r.s.st.addTo(r.s.st.administrators, companyID, userID)
	return nil
}

func (r companyRepo) RemoveAdministrator(_ context.Context, companyID, userID int64) error {
	r.s.lock()
	defer r.s.unlock()
	delete(r.s.st.administrators[companyID], userID)
	return nil
}

func (r companyRepo) IsAdministrator(_ context.Context, companyID, userID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.st.administrators[companyID][userID]
	return ok, nil
}

func (r companyRepo) checkPair(companyID, userID int64) error {
	if _, ok := r.s.st.companies[companyID]; !ok {
		return domain.ErrCompanyNotFound
	}
	if _, ok := r.s.st.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	return nil
}

type invitationRepo struct{ s *Store }

func (r invitationRepo) Create(_ context.Context, inv *domain.Invitation) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.companies[inv.CompanyID]; !ok {
		return domain.ErrCompanyNotFound
	}
	if _, ok := r.s.st.users[inv.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	if inv.Status.Active() {
		for _, other := range r.s.st.invitations {
			if other.CompanyID == inv.CompanyID && other.UserID == inv.UserID && other.Status.Active() {
				return domain.ErrInvitationPending
			}
		}
	}
	inv.ID = r.s.st.id()
	r.s.st.invitations[inv.ID] = *inv
	return nil
}

func (r invitationRepo) Find(_ context.Context, companyID, userID int64, status domain.InvitationStatus) (domain.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found domain.Invitation
	for _, inv := range r.s.st.invitations {
		if inv.CompanyID == companyID && inv.UserID == userID && inv.Status == status && inv.ID > found.ID {
			found = inv
		}
	}
	if found.ID == 0 {
		return domain.Invitation{}, domain.ErrInvitationNotFound
	}
	return found, nil
}

func (r invitationRepo) UpdateStatus(_ context.Context, id int64, status domain.InvitationStatus, at time.Time) error {
	r.s.lock()
	defer r.s.unlock()
	inv, ok := r.s.st.invitations[id]
	if !ok {
		return domain.ErrInvitationNotFound
	}
	inv.Status = status
	inv.UpdatedAt = at
	r.s.st.invitations[id] = inv
	return nil
}

func (r invitationRepo) ListByUser(_ context.Context, userID int64, status domain.InvitationStatus) ([]domain.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return byID(r.s.st.invitations, func(inv domain.Invitation) bool {
		return inv.UserID == userID && (status == "" || inv.Status == status)
	}), nil
}

func (r invitationRepo) ListByCompany(_ context.Context, companyID int64, status domain.InvitationStatus) ([]domain.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return byID(r.s.st.invitations, func(inv domain.Invitation) bool {
		return inv.CompanyID == companyID && (status == "" || inv.Status == status)
	}), nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.users[n.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	n.ID = r.s.st.id()
	r.s.st.notifications[n.ID] = *n
	return nil
}

// ListByUser returns newest first.
func (r notificationRepo) ListByUser(_ context.Context, userID int64) ([]domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := byID(r.s.st.notifications, func(n domain.Notification) bool { return n.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r notificationRepo) MarkAllRead(_ context.Context, userID int64) error {
	r.s.lock()
	defer r.s.unlock()
	for id, n := range r.s.st.notifications {
		if n.UserID == userID && n.Status != domain.NotificationRead {
			n.Status = domain.NotificationRead
			r.s.st.notifications[id] = n
		}
	}
	return nil
}
