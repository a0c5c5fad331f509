package http

import (
	"context"
	"net/http"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// companyRequest names the company a user acts on. Requests use req_company_id.
type companyRequest struct {
	CompanyID    int64 `json:"company_id"`
	ReqCompanyID int64 `json:"req_company_id"`
}

func (c companyRequest) target() (int64, error) {
	if c.CompanyID > 0 {
		return c.CompanyID, nil
	}
	if c.ReqCompanyID > 0 {
		return c.ReqCompanyID, nil
	}
	return 0, &domain.ValidationError{Fields: map[string]string{"company_id": "this field is required"}}
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, err := a.Users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (a *api) createUser(w http.ResponseWriter, r *http.Request) {
	var in app.UserInput
	if err := a.decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.Users.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *api) listUsers(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	users, total, err := a.Users.List(r.Context(), p.bounds())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(r, p, users, total))
}

func (a *api) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.Users.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *api) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.UserInput
	if err := a.decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.Users.Update(r.Context(), actor(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *api) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Users.Delete(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// self resolves the path user and requires it to be the caller.
func self(r *http.Request) (int64, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return 0, err
	}
	if id != actor(r) {
		return 0, domain.ErrForbidden
	}
	return id, nil
}

// userAction adapts a (user, company) use case to a POST handler replying with msg.
func (a *api) userAction(action func(ctx context.Context, userID, companyID int64) error, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := self(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req companyRequest
		if err := a.decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		companyID, err := req.target()
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := action(r.Context(), userID, companyID); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, msg)
	}
}

func (a *api) sendRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := self(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req companyRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	companyID, err := req.target()
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := a.Companies.SendRequest(r.Context(), userID, companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (a *api) userInvitations(w http.ResponseWriter, r *http.Request) {
	a.listUserInvitations(w, r, domain.InvitationInvited)
}

func (a *api) userRequests(w http.ResponseWriter, r *http.Request) {
	a.listUserInvitations(w, r, domain.InvitationRequested)
}

func (a *api) listUserInvitations(w http.ResponseWriter, r *http.Request, status domain.InvitationStatus) {
	userID, err := self(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	invs, err := a.Companies.UserInvitations(r.Context(), userID, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

func (a *api) userNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := a.Users.Notifications(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
