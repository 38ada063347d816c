package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matevzj/knjiznica/internal/model"
	"github.com/matevzj/knjiznica/internal/store"
)

// MembersHandler handles membership endpoints.
type MembersHandler struct {
	DB *sql.DB
}

type memberRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (req *memberRequest) validate() string {
	switch {
	case req.Name == "":
		return "name required"
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		return "valid email required"
	}
	return ""
}

func (req *memberRequest) toModel() model.Member {
	return model.Member{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
}

// List handles GET /api/members.
func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != store.MemberStatusActive && status != store.MemberStatusInactive {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	members, err := store.ListMembers(r.Context(), h.DB, status)
	if err != nil {
		storeError(w, err, "failed to list members")
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	jsonResponse(w, http.StatusOK, members)
}

// Search handles GET /api/members/search.
func (h *MembersHandler) Search(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	members, err := store.SearchMembers(r.Context(), h.DB, name)
	if err != nil {
		storeError(w, err, "failed to search members")
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	jsonResponse(w, http.StatusOK, members)
}

// Create handles POST /api/members.
func (h *MembersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	member, err := store.CreateMember(r.Context(), h.DB, req.toModel())
	if err != nil {
		storeError(w, err, "failed to create member")
		return
	}

	jsonResponse(w, http.StatusCreated, member)
}

// Get handles GET /api/members/{id}.
func (h *MembersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	member, err := store.GetMember(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get member")
		return
	}
	if member == nil {
		jsonError(w, http.StatusNotFound, "member not found")
		return
	}

	jsonResponse(w, http.StatusOK, member)
}

// GetByEmail handles GET /api/members/email/{email}.
func (h *MembersHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	member, err := store.GetMemberByEmail(r.Context(), h.DB, r.PathValue("email"))
	if err != nil {
		storeError(w, err, "failed to get member")
		return
	}
	if member == nil {
		jsonError(w, http.StatusNotFound, "member not found")
		return
	}

	jsonResponse(w, http.StatusOK, member)
}

// Update handles PUT /api/members/{id}.
func (h *MembersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	member, err := store.UpdateMember(r.Context(), h.DB, id, req.toModel())
	if err != nil {
		storeError(w, err, "failed to update member")
		return
	}

	jsonResponse(w, http.StatusOK, member)
}

// Activate handles PATCH /api/members/{id}/activate.
func (h *MembersHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Deactivate handles PATCH /api/members/{id}/deactivate.
func (h *MembersHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *MembersHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	member, err := store.SetMemberActive(r.Context(), h.DB, id, active)
	if err != nil {
		storeError(w, err, "failed to update member status")
		return
	}

	jsonResponse(w, http.StatusOK, member)
}

// Delete handles DELETE /api/members/{id}.
func (h *MembersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	if err := store.DeleteMember(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "failed to delete member")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "member deleted"})
}

// GetLoans handles GET /api/members/{id}/loans.
func (h *MembersHandler) GetLoans(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	member, err := store.GetMember(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get member")
		return
	}
	if member == nil {
		jsonError(w, http.StatusNotFound, "member not found")
		return
	}

	loans, err := store.ListLoans(r.Context(), h.DB, id, 0, r.URL.Query().Get("status"))
	if err != nil {
		storeError(w, err, "failed to get member loans")
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	annotateOverdue(loans, time.Now())
	jsonResponse(w, http.StatusOK, loans)
}

// GetStats handles GET /api/members/{id}/stats.
func (h *MembersHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	stats, err := store.GetMemberStats(r.Context(), h.DB, id, time.Now())
	if err != nil {
		storeError(w, err, "failed to get member stats")
		return
	}

	jsonResponse(w, http.StatusOK, stats)
}
