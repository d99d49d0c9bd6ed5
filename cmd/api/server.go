package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lexconnect/attorney"
	"lexconnect/auth"
	"lexconnect/conflict"
	"lexconnect/matter"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyRole
)

// MatterService is the matter surface the handlers depend on; satisfied by
// *matter.Service.
type MatterService interface {
	Create(ctx context.Context, params matter.CreateParams) (matter.Matter, error)
	Get(ctx context.Context, id string) (matter.Matter, error)
	AddParty(ctx context.Context, params matter.AddPartyParams) (matter.Party, error)
	ListParties(ctx context.Context, matterID string) ([]matter.Party, error)
	History(ctx context.Context, matterID string) ([]matter.StatusHistory, error)
	Submit(ctx context.Context, matterID string, actorID *string) (matter.Matter, error)
	Transition(ctx context.Context, params matter.TransitionParams) (matter.Matter, error)
	AssignAttorney(ctx context.Context, params matter.AssignAttorneyParams) (matter.Matter, error)
}

// ConflictService is the check surface; satisfied by *conflict.Engine.
type ConflictService interface {
	PerformCheck(ctx context.Context, params conflict.PerformCheckParams) (conflict.Check, error)
	GetCheck(ctx context.Context, checkID string) (conflict.Check, error)
	ListDetails(ctx context.Context, checkID string) ([]conflict.Detail, error)
	AvailableAttorneys(ctx context.Context, matterID string) ([]attorney.Profile, error)
}

// LedgerService is the client-record surface; satisfied by *conflict.Ledger.
type LedgerService interface {
	AddRecord(ctx context.Context, params conflict.AddRecordParams) (conflict.LedgerRecord, bool, error)
	BulkImport(ctx context.Context, attorneyID string, names []string, relationshipType conflict.RelationshipType) (int, error)
	ListRecords(ctx context.Context, attorneyID string) ([]conflict.LedgerRecord, error)
}

// DirectoryService is the attorney listing surface; satisfied by
// *attorney.Service.
type DirectoryService interface {
	List(ctx context.Context, limit int) ([]attorney.Profile, error)
}

// AuthService issues and verifies credentials; satisfied by *auth.Service.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (string, auth.Role, error)
}

// Server routes HTTP traffic to the domain services.
type Server struct {
	matterService   MatterService
	conflictService ConflictService
	ledgerService   LedgerService
	attorneyService DirectoryService
	authService     AuthService
}

// Router assembles the chi routing tree. Submit and conflict checks accept
// anonymous callers; ledger routes require an attorney identity.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.withOptionalAuth)

			r.Post("/matters", s.handleCreateMatter)
			r.Get("/matters/{id}", s.handleGetMatter)
			r.Post("/matters/{id}/submit", s.handleSubmitMatter)
			r.Post("/matters/{id}/status", s.handleTransitionMatter)
			r.Post("/matters/{id}/parties", s.handleAddParty)
			r.Get("/matters/{id}/parties", s.handleListParties)
			r.Post("/matters/{id}/assign", s.handleAssignAttorney)
			r.Get("/matters/{id}/history", s.handleHistory)
			r.Get("/matters/{id}/available-attorneys", s.handleAvailableAttorneys)

			r.Post("/conflicts/check", s.handlePerformCheck)
			r.Get("/conflicts/checks/{id}", s.handleGetCheck)

			r.Get("/attorneys", s.handleListAttorneys)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.withOptionalAuth, s.requireAttorney)

			r.Post("/conflicts/records", s.handleAddRecord)
			r.Post("/conflicts/records/import", s.handleImportRecords)
			r.Get("/conflicts/records", s.handleListRecords)
		})
	})

	return r
}

// withOptionalAuth resolves a bearer token into an actor identity when one is
// presented. Requests without a token proceed anonymously.
func (s *Server) withOptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "malformed authorization header")
			return
		}
		userID, role, err := s.authService.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		ctx = context.WithValue(ctx, ctxKeyRole, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAttorney gates ledger routes on an authenticated attorney (or
// admin acting on an attorney's behalf via the attorneyId field).
func (s *Server) requireAttorney(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(ctxKeyRole).(auth.Role)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if role != auth.RoleAttorney && role != auth.RoleAdmin {
			writeError(w, http.StatusForbidden, "attorney role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorID(r *http.Request) *string {
	if id, ok := r.Context().Value(ctxKeyUserID).(string); ok && id != "" {
		return &id
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := s.authService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, "registration failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(*user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.authService.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	})
}

type createMatterRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	PracticeAreaID *string `json:"practiceAreaId"`
	JurisdictionID *string `json:"jurisdictionId"`
}

func (s *Server) handleCreateMatter(w http.ResponseWriter, r *http.Request) {
	var req createMatterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := s.matterService.Create(r.Context(), matter.CreateParams{
		ClientID:       actorID(r),
		Title:          req.Title,
		Description:    req.Description,
		PracticeAreaID: req.PracticeAreaID,
		JurisdictionID: req.JurisdictionID,
	})
	if err != nil {
		s.writeMatterError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMatterResponse(m))
}

func (s *Server) handleGetMatter(w http.ResponseWriter, r *http.Request) {
	m, err := s.matterService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMatterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatterResponse(m))
}

func (s *Server) handleSubmitMatter(w http.ResponseWriter, r *http.Request) {
	m, err := s.matterService.Submit(r.Context(), chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		s.writeMatterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatterResponse(m))
}

type transitionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (s *Server) handleTransitionMatter(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target := matter.Status(req.Status)
	if !matter.ValidStatus(target) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
		return
	}
	m, err := s.matterService.Transition(r.Context(), matter.TransitionParams{
		MatterID: chi.URLParam(r, "id"),
		Target:   target,
		ActorID:  actorID(r),
		Notes:    req.Notes,
	})
	if err != nil {
		s.writeMatterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatterResponse(m))
}

type addPartyRequest struct {
	Name      string `json:"name"`
	PartyType string `json:"partyType"`
	Role      string `json:"role"`
}

func (s *Server) handleAddParty(w http.ResponseWriter, r *http.Request) {
	var req addPartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	party, err := s.matterService.AddParty(r.Context(), matter.AddPartyParams{
		MatterID:  chi.URLParam(r, "id"),
		Name:      req.Name,
		PartyType: matter.PartyType(req.PartyType),
		Role:      matter.PartyRole(req.Role),
	})
	if err != nil {
		s.writeMatterError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPartyResponse(party))
}

func (s *Server) handleListParties(w http.ResponseWriter, r *http.Request) {
	parties, err := s.matterService.ListParties(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMatterError(w, err)
		return
	}
	items := make([]partyResponse, 0, len(parties))
	for _, p := range parties {
		items = append(items, toPartyResponse(p))
	}
	writeJSON(w, http.StatusOK, listResponse[partyResponse]{Items: items, Total: len(items)})
}

type assignRequest struct {
	AttorneyID string `json:"attorneyId"`
}

func (s *Server) handleAssignAttorney(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AttorneyID == "" {
		writeError(w, http.StatusBadRequest, "attorneyId is required")
		return
	}
	m, err := s.matterService.AssignAttorney(r.Context(), matter.AssignAttorneyParams{
		MatterID:   chi.URLParam(r, "id"),
		AttorneyID: req.AttorneyID,
		ActorID:    actorID(r),
	})
	if err != nil {
		s.writeMatterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatterResponse(m))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.matterService.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeMatterError(w, err)
		return
	}
	items := make([]historyResponse, 0, len(history))
	for _, h := range history {
		items = append(items, historyResponse{
			ID:         h.ID,
			FromStatus: string(h.FromStatus),
			ToStatus:   string(h.ToStatus),
			ActorID:    h.ActorID,
			Notes:      h.Notes,
			CreatedAt:  h.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, listResponse[historyResponse]{Items: items, Total: len(items)})
}

func (s *Server) handleAvailableAttorneys(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.conflictService.AvailableAttorneys(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeConflictError(w, err)
		return
	}
	items := make([]attorneyResponse, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, toAttorneyResponse(p))
	}
	writeJSON(w, http.StatusOK, listResponse[attorneyResponse]{Items: items, Total: len(items)})
}

type performCheckRequest struct {
	MatterID string `json:"matterId"`
}

func (s *Server) handlePerformCheck(w http.ResponseWriter, r *http.Request) {
	var req performCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MatterID == "" {
		writeError(w, http.StatusBadRequest, "matterId is required")
		return
	}
	check, err := s.conflictService.PerformCheck(r.Context(), conflict.PerformCheckParams{
		MatterID:    req.MatterID,
		RequestedBy: actorID(r),
	})
	if err != nil {
		s.writeConflictError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCheckResponse(check))
}

func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request) {
	checkID := chi.URLParam(r, "id")
	check, err := s.conflictService.GetCheck(r.Context(), checkID)
	if err != nil {
		s.writeConflictError(w, err)
		return
	}
	details, err := s.conflictService.ListDetails(r.Context(), checkID)
	if err != nil {
		s.writeConflictError(w, err)
		return
	}
	resp := toCheckResponse(check)
	resp.Details = make([]detailResponse, 0, len(details))
	for _, d := range details {
		resp.Details = append(resp.Details, detailResponse{
			AttorneyID:   d.AttorneyID,
			NameHash:     d.NameHash,
			ConflictType: string(d.ConflictType),
			Description:  d.Description,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type addRecordRequest struct {
	Name             string  `json:"name"`
	RelationshipType string  `json:"relationshipType"`
	MatterID         *string `json:"matterId"`
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	var req addRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	actor := actorID(r)
	record, created, err := s.ledgerService.AddRecord(r.Context(), conflict.AddRecordParams{
		AttorneyID:       *actor,
		Name:             req.Name,
		RelationshipType: conflict.RelationshipType(req.RelationshipType),
		MatterID:         req.MatterID,
	})
	if err != nil {
		s.writeConflictError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toRecordResponse(record))
}

type importRecordsRequest struct {
	Names            []string `json:"names"`
	RelationshipType string   `json:"relationshipType"`
}

func (s *Server) handleImportRecords(w http.ResponseWriter, r *http.Request) {
	var req importRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Names) == 0 {
		writeError(w, http.StatusBadRequest, "names is required")
		return
	}
	actor := actorID(r)
	imported, err := s.ledgerService.BulkImport(r.Context(), *actor, req.Names, conflict.RelationshipType(req.RelationshipType))
	if err != nil {
		s.writeConflictError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": imported})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	records, err := s.ledgerService.ListRecords(r.Context(), *actor)
	if err != nil {
		s.writeConflictError(w, err)
		return
	}
	items := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, listResponse[recordResponse]{Items: items, Total: len(items)})
}

func (s *Server) handleListAttorneys(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}
	profiles, err := s.attorneyService.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	items := make([]attorneyResponse, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, toAttorneyResponse(p))
	}
	writeJSON(w, http.StatusOK, listResponse[attorneyResponse]{Items: items, Total: len(items)})
}

// writeMatterError maps matter-domain failures onto HTTP statuses. Rejected
// transitions surface the valid next states so clients can recover.
func (s *Server) writeMatterError(w http.ResponseWriter, err error) {
	var transitionErr *matter.TransitionError
	switch {
	case errors.As(err, &transitionErr):
		allowed := make([]string, 0, len(transitionErr.Allowed))
		for _, st := range transitionErr.Allowed {
			allowed = append(allowed, string(st))
		}
		writeJSON(w, http.StatusConflict, transitionErrorResponse{
			Error:        "invalid status transition",
			From:         string(transitionErr.From),
			Target:       string(transitionErr.Target),
			ValidTargets: allowed,
		})
	case errors.Is(err, matter.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, matter.ErrConflictCheckRequired):
		writeError(w, http.StatusConflict, "conflict check must complete before matching")
	case errors.Is(err, matter.ErrAttorneyNotEligible):
		writeError(w, http.StatusConflict, "attorney not verified or not accepting clients")
	case errors.Is(err, matter.ErrNotFound):
		writeError(w, http.StatusNotFound, "matter not found")
	case errors.Is(err, matter.ErrEmptyPartyName):
		writeError(w, http.StatusBadRequest, "party name is required")
	case errors.Is(err, matter.ErrNotDeletable):
		writeError(w, http.StatusConflict, "only draft or cancelled matters can be deleted")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeConflictError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conflict.ErrMatterNotFound):
		writeError(w, http.StatusNotFound, "matter not found")
	case errors.Is(err, conflict.ErrCheckNotFound):
		writeError(w, http.StatusNotFound, "conflict check not found")
	case errors.Is(err, conflict.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "client record not found")
	case errors.Is(err, conflict.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "name is required")
	case errors.Is(err, conflict.ErrInvalidRelationship):
		writeError(w, http.StatusBadRequest, "unknown relationship type")
	case errors.Is(err, conflict.ErrCheckFailed):
		writeError(w, http.StatusInternalServerError, "conflict check failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type transitionErrorResponse struct {
	Error        string   `json:"error"`
	From         string   `json:"from"`
	Target       string   `json:"target"`
	ValidTargets []string `json:"validTargets"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type matterResponse struct {
	ID                     string  `json:"id"`
	ClientID               *string `json:"clientId"`
	AttorneyID             *string `json:"attorneyId"`
	Title                  string  `json:"title"`
	Description            string  `json:"description"`
	PracticeAreaID         *string `json:"practiceAreaId"`
	JurisdictionID         *string `json:"jurisdictionId"`
	Status                 string  `json:"status"`
	ConflictCheckCompleted bool    `json:"conflictCheckCompleted"`
	ConflictCheckPassed    bool    `json:"conflictCheckPassed"`
	ConflictCheckDate      *string `json:"conflictCheckDate"`
	CreatedAt              string  `json:"createdAt"`
	SubmittedAt            *string `json:"submittedAt"`
	AssignedAt             *string `json:"assignedAt"`
	CompletedAt            *string `json:"completedAt"`
}

type partyResponse struct {
	ID        string `json:"id"`
	MatterID  string `json:"matterId"`
	Name      string `json:"name"`
	PartyType string `json:"partyType"`
	Role      string `json:"role"`
	NameHash  string `json:"nameHash"`
	CreatedAt string `json:"createdAt"`
}

type historyResponse struct {
	ID         int64   `json:"id"`
	FromStatus string  `json:"fromStatus"`
	ToStatus   string  `json:"toStatus"`
	ActorID    *string `json:"actorId"`
	Notes      string  `json:"notes"`
	CreatedAt  string  `json:"createdAt"`
}

type checkResponse struct {
	ID                string           `json:"id"`
	MatterID          string           `json:"matterId"`
	Status            string           `json:"status"`
	Result            *string          `json:"result"`
	NamesCheckedCount int              `json:"namesCheckedCount"`
	CheckedAttorneys  []string         `json:"checkedAttorneys"`
	ExcludedAttorneys []string         `json:"excludedAttorneys"`
	StartedAt         *string          `json:"startedAt"`
	CompletedAt       *string          `json:"completedAt"`
	ProcessingTimeMS  *int             `json:"processingTimeMs"`
	Details           []detailResponse `json:"details,omitempty"`
}

type detailResponse struct {
	AttorneyID   string `json:"attorneyId"`
	NameHash     string `json:"nameHash"`
	ConflictType string `json:"conflictType"`
	Description  string `json:"description"`
}

type attorneyResponse struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	BarNumber string `json:"barNumber"`
	BarState  string `json:"barState"`
	Verified  bool   `json:"verified"`
	Accepting bool   `json:"accepting"`
}

type recordResponse struct {
	ID               string  `json:"id"`
	NameHash         string  `json:"nameHash"`
	RelationshipType string  `json:"relationshipType"`
	MatterID         *string `json:"matterId"`
	CreatedAt        string  `json:"createdAt"`
}

func toUserResponse(u auth.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

func toMatterResponse(m matter.Matter) matterResponse {
	return matterResponse{
		ID:                     m.ID,
		ClientID:               m.ClientID,
		AttorneyID:             m.AttorneyID,
		Title:                  m.Title,
		Description:            m.Description,
		PracticeAreaID:         m.PracticeAreaID,
		JurisdictionID:         m.JurisdictionID,
		Status:                 string(m.Status),
		ConflictCheckCompleted: m.ConflictCheckCompleted,
		ConflictCheckPassed:    m.ConflictCheckPassed,
		ConflictCheckDate:      formatTimePtr(m.ConflictCheckDate),
		CreatedAt:              m.CreatedAt.Format(time.RFC3339),
		SubmittedAt:            formatTimePtr(m.SubmittedAt),
		AssignedAt:             formatTimePtr(m.AssignedAt),
		CompletedAt:            formatTimePtr(m.CompletedAt),
	}
}

func toPartyResponse(p matter.Party) partyResponse {
	return partyResponse{
		ID:        p.ID,
		MatterID:  p.MatterID,
		Name:      p.Name,
		PartyType: string(p.PartyType),
		Role:      string(p.Role),
		NameHash:  p.NameHash,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toCheckResponse(c conflict.Check) checkResponse {
	var result *string
	if c.Result != nil {
		r := string(*c.Result)
		result = &r
	}
	return checkResponse{
		ID:                c.ID,
		MatterID:          c.MatterID,
		Status:            string(c.Status),
		Result:            result,
		NamesCheckedCount: c.NamesCheckedCount,
		CheckedAttorneys:  c.CheckedAttorneys,
		ExcludedAttorneys: c.ExcludedAttorneys,
		StartedAt:         formatTimePtr(c.StartedAt),
		CompletedAt:       formatTimePtr(c.CompletedAt),
		ProcessingTimeMS:  c.ProcessingTimeMS,
	}
}

func toAttorneyResponse(p attorney.Profile) attorneyResponse {
	return attorneyResponse{
		ID:        p.UserID,
		FullName:  p.FullName,
		BarNumber: p.BarNumber,
		BarState:  p.BarState,
		Verified:  p.Verified,
		Accepting: p.Accepting,
	}
}

func toRecordResponse(rec conflict.LedgerRecord) recordResponse {
	return recordResponse{
		ID:               rec.ID,
		NameHash:         rec.NameHash,
		RelationshipType: string(rec.RelationshipType),
		MatterID:         rec.MatterID,
		CreatedAt:        rec.CreatedAt.Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
