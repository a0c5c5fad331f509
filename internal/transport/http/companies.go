package http

import (
	"context"
	"net/http"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

// memberRequest names the user a company acts on. The field depends on the action:
// invitations use invited_user_id, requests req_user_id, membership changes user_id.
type memberRequest struct {
	UserID        int64 `json:"user_id"`
	InvitedUserID int64 `json:"invited_user_id"`
	ReqUserID     int64 `json:"req_user_id"`
}

func (m memberRequest) target() (int64, error) {
	for _, id := range []int64{m.UserID, m.InvitedUserID, m.ReqUserID} {
		if id > 0 {
			return id, nil
		}
	}
	return 0, &domain.ValidationError{Fields: map[string]string{"user_id": "this field is required"}}
}

func (a *api) createCompany(w http.ResponseWriter, r *http.Request) {
	var in app.CompanyInput
	if err := a.decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	company, err := a.Companies.Create(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

func (a *api) listCompanies(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	companies, total, err := a.Companies.List(r.Context(), actor(r), p.bounds())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(r, p, companies, total))
}

func (a *api) getCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	company, err := a.Companies.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (a *api) updateCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.CompanyInput
	if err := a.decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	company, err := a.Companies.Update(r.Context(), actor(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (a *api) deleteCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Companies.Delete(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// companyTarget reads the path company and the body user.
func (a *api) companyTarget(r *http.Request) (int64, int64, error) {
	companyID, err := pathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	var req memberRequest
	if err := a.decode(r, &req); err != nil {
		return 0, 0, err
	}
	userID, err := req.target()
	if err != nil {
		return 0, 0, err
	}
	return companyID, userID, nil
}

// companyAction adapts an (actor, company, user) use case to a POST handler replying with msg.
func (a *api) companyAction(action func(ctx context.Context, actorID, companyID, userID int64) error, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, userID, err := a.companyTarget(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := action(r.Context(), actor(r), companyID, userID); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, msg)
	}
}

func (a *api) sendInvitation(w http.ResponseWriter, r *http.Request) {
	companyID, userID, err := a.companyTarget(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := a.Companies.SendInvitation(r.Context(), actor(r), companyID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (a *api) companyInvitations(w http.ResponseWriter, r *http.Request) {
	a.listCompanyInvitations(w, r, domain.InvitationInvited)
}

func (a *api) companyRequests(w http.ResponseWriter, r *http.Request) {
	a.listCompanyInvitations(w, r, domain.InvitationRequested)
}

func (a *api) listCompanyInvitations(w http.ResponseWriter, r *http.Request, status domain.InvitationStatus) {
	companyID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	invs, err := a.Companies.CompanyInvitations(r.Context(), actor(r), companyID, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invs)
}
