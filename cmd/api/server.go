package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fightleague/auth"
	"fightleague/dispute"
	"fightleague/fight"
	"fightleague/fighter"
	"fightleague/progression"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyRole
)

type authService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*fighter.Account, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (string, fighter.Role, error)
}

type fighterService interface {
	Get(ctx context.Context, id string) (fighter.Account, error)
}

type recordService interface {
	ListForFighter(ctx context.Context, fighterID string, limit int) ([]fight.Record, error)
}

type reportService interface {
	Report(ctx context.Context, params fight.ReportParams) (fight.ReportOutcome, error)
}

type statsService interface {
	Progress(ctx context.Context, fighterID string) (progression.TierProgress, error)
	Stats(ctx context.Context) (progression.TierStats, error)
}

type disputeService interface {
	Open(ctx context.Context, params dispute.OpenParams) (dispute.Dispute, error)
	View(ctx context.Context, disputeID, viewerID string) (dispute.Dispute, []dispute.Message, error)
	MarkInReview(ctx context.Context, disputeID, adminID string) error
	PostMessage(ctx context.Context, disputeID, senderID, body string) (dispute.Message, error)
	ListForFighter(ctx context.Context, fighterID string) ([]dispute.Dispute, error)
	Queue(ctx context.Context, status dispute.Status) ([]dispute.Dispute, error)
}

type resolutionService interface {
	Resolve(ctx context.Context, params dispute.ResolveParams) (dispute.ResolveResult, error)
}

// Server wires the HTTP surface to the domain services.
type Server struct {
	authService       authService
	fighterService    fighterService
	recordService     recordService
	reportService     reportService
	statsService      statsService
	disputeService    disputeService
	resolutionService resolutionService
	logger            *slog.Logger
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/login", s.handleLogin)

	mux.HandleFunc("/api/fighters/", s.handleFighterDetail)
	mux.HandleFunc("/api/tiers", s.handleTiers)
	mux.HandleFunc("/api/stats", s.handleStats)

	mux.HandleFunc("/api/fights/report", s.requireAuth(s.handleReportFight))
	mux.HandleFunc("/api/disputes", s.requireAuth(s.handleDisputes))
	mux.HandleFunc("/api/disputes/", s.requireAuth(s.handleDisputeDetail))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		accountID, role, err := s.authService.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, accountID)
		ctx = context.WithValue(ctx, ctxKeyRole, role)
		next(w, r.WithContext(ctx))
	}
}

func callerID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyUserID).(string)
	return id
}

func callerRole(r *http.Request) fighter.Role {
	role, _ := r.Context().Value(ctxKeyRole).(fighter.Role)
	return role
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	// Self-registration never grants the admin role.
	req.Role = fighter.RoleFighter

	acct, err := s.authService.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(*acct))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := s.authService.Login(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:   result.Token,
		Account: toAccountResponse(result.Account),
	})
}

// handleFighterDetail serves /api/fighters/{id}, /api/fighters/{id}/records,
// and /api/fighters/{id}/progress.
func (s *Server) handleFighterDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/fighters/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing fighter id")
		return
	}

	switch sub {
	case "":
		acct, err := s.fighterService.Get(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAccountResponse(acct))

	case "records":
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		records, err := s.recordService.ListForFighter(r.Context(), id, limit)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		items := make([]recordResponse, 0, len(records))
		for _, rec := range records {
			items = append(items, toRecordResponse(rec))
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case "progress":
		progress, err := s.statsService.Progress(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, progressResponse{
			CurrentTier:     string(progress.CurrentTier),
			Points:          progress.Points,
			PointsToNext:    progress.PointsToNext,
			ProgressPercent: progress.ProgressPercent,
		})

	default:
		writeError(w, http.StatusNotFound, "unknown resource")
	}
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	defs := progression.Tiers()
	items := make([]tierResponse, 0, len(defs))
	for _, def := range defs {
		item := tierResponse{
			Name:      string(def.Name),
			MinPoints: def.MinPoints,
			Benefits:  def.Benefits,
		}
		if max, ok := tierUpperBound(def); ok {
			item.MaxPoints = &max
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// tierUpperBound returns the inclusive upper bound of a band, reporting false
// for the unbounded top band.
func tierUpperBound(def progression.TierDefinition) (int, bool) {
	if _, ok := progression.NextTier(def.Name); !ok {
		return 0, false
	}
	return def.MaxPoints, true
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.statsService.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	distribution := make(map[string]int, len(stats.TierDistribution))
	for tier, count := range stats.TierDistribution {
		distribution[string(tier)] = count
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalFighters:    stats.TotalFighters,
		TierDistribution: distribution,
		RecentPromotions: stats.RecentPromotions,
		RecentDemotions:  stats.RecentDemotions,
	})
}

func (s *Server) handleReportFight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	out, err := s.reportService.Report(r.Context(), fight.ReportParams{
		FighterID:    callerID(r),
		OpponentName: req.OpponentName,
		Result:       req.Result,
		Method:       req.Method,
		Round:        req.Round,
		FoughtAt:     req.FoughtAt,
		WeightClass:  req.WeightClass,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reportResponse{
		Record: toRecordResponse(out.Record),
		Progression: progressionResponse{
			NewPoints:    out.Progression.NewPoints,
			PreviousTier: string(out.Progression.PreviousTier),
			NewTier:      string(out.Progression.NewTier),
			Transition:   string(out.Progression.Transition),
		},
	})
}

func (s *Server) handleDisputes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListDisputes(w, r)
	case http.MethodPost:
		s.handleOpenDispute(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListDisputes(w http.ResponseWriter, r *http.Request) {
	var (
		disputes []dispute.Dispute
		err      error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		if callerRole(r) != fighter.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin only")
			return
		}
		disputes, err = s.disputeService.Queue(r.Context(), dispute.Status(status))
	} else {
		disputes, err = s.disputeService.ListForFighter(r.Context(), callerID(r))
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	items := make([]disputeResponse, 0, len(disputes))
	for _, d := range disputes {
		items = append(items, toDisputeResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleOpenDispute(w http.ResponseWriter, r *http.Request) {
	var req openDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	d, err := s.disputeService.Open(r.Context(), dispute.OpenParams{
		DisputerID:   callerID(r),
		OpponentID:   req.OpponentID,
		OpponentName: req.OpponentName,
		Category:     dispute.Category(req.Category),
		Reason:       req.Reason,
		EvidenceRefs: req.EvidenceRefs,
		FightID:      req.FightID,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDisputeResponse(d))
}

// handleDisputeDetail serves /api/disputes/{id} plus the messages, review,
// and resolve subresources.
func (s *Server) handleDisputeDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/disputes/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing dispute id")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.handleViewDispute(w, r, id)
	case sub == "messages" && r.Method == http.MethodPost:
		s.handlePostMessage(w, r, id)
	case sub == "review" && r.Method == http.MethodPost:
		s.handleMarkInReview(w, r, id)
	case sub == "resolve" && r.Method == http.MethodPost:
		s.handleResolveDispute(w, r, id)
	case sub == "":
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		writeError(w, http.StatusNotFound, "unknown resource")
	}
}

func (s *Server) handleViewDispute(w http.ResponseWriter, r *http.Request, id string) {
	d, msgs, err := s.disputeService.View(r.Context(), id, callerID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	messages := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		messages = append(messages, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, disputeDetailResponse{
		Dispute:  toDisputeResponse(d),
		Messages: messages,
	})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request, id string) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	m, err := s.disputeService.PostMessage(r.Context(), id, callerID(r), req.Body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageResponse(m))
}

func (s *Server) handleMarkInReview(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.disputeService.MarkInReview(r.Context(), id, callerID(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResolveDispute(w http.ResponseWriter, r *http.Request, id string) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := s.resolutionService.Resolve(r.Context(), dispute.ResolveParams{
		DisputeID:         id,
		AdminID:           callerID(r),
		Type:              dispute.ResolutionType(req.ResolutionType),
		Resolution:        req.Resolution,
		AdminNotes:        req.AdminNotes,
		MessageToDisputer: req.MessageToDisputer,
		MessageToOpponent: req.MessageToOpponent,
		OpponentID:        req.OpponentID,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := resolveResponse{
		Dispute:    toDisputeResponse(result.Dispute),
		OpponentID: result.OpponentID,
	}
	if result.DisputerProgression != nil {
		resp.DisputerProgression = &progressionResponse{
			NewPoints:    result.DisputerProgression.NewPoints,
			PreviousTier: string(result.DisputerProgression.PreviousTier),
			NewTier:      string(result.DisputerProgression.NewTier),
			Transition:   string(result.DisputerProgression.Transition),
		}
	}
	if result.OpponentProgression != nil {
		resp.OpponentProgression = &progressionResponse{
			NewPoints:    result.OpponentProgression.NewPoints,
			PreviousTier: string(result.OpponentProgression.PreviousTier),
			NewTier:      string(result.OpponentProgression.NewTier),
			Transition:   string(result.OpponentProgression.Transition),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispute.ErrValidation), errors.Is(err, fight.ErrValidation), errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrDuplicateAccount):
		writeError(w, http.StatusConflict, "account already exists")
	case errors.Is(err, dispute.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, dispute.ErrAlreadyResolved), errors.Is(err, dispute.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, dispute.ErrMissingParty):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, dispute.ErrNotFound),
		errors.Is(err, fighter.ErrNotFound),
		errors.Is(err, fight.ErrRecordNotFound),
		errors.Is(err, fight.ErrScheduledNotFound),
		errors.Is(err, auth.ErrAccountNotFound),
		errors.Is(err, progression.ErrFighterNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		if s.logger != nil {
			s.logger.Error("request failed", "error", err)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// --- response shapes ---

type accountResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"displayName"`
	Role        string  `json:"role"`
	Points      int     `json:"points"`
	Tier        string  `json:"tier"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
	WeightClass *string `json:"weightClass,omitempty"`
	BannedUntil *string `json:"bannedUntil,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

func toAccountResponse(a fighter.Account) accountResponse {
	resp := accountResponse{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Role:        string(a.Role),
		Points:      a.Points,
		Tier:        string(a.Tier),
		Wins:        a.Wins,
		Losses:      a.Losses,
		Draws:       a.Draws,
		WeightClass: a.WeightClass,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
	if a.BannedUntil != nil {
		until := a.BannedUntil.Format(time.RFC3339)
		resp.BannedUntil = &until
	}
	return resp
}

type loginResponse struct {
	Token   string          `json:"token"`
	Account accountResponse `json:"account"`
}

type recordResponse struct {
	ID           string `json:"id"`
	FighterID    string `json:"fighterId"`
	OpponentName string `json:"opponentName"`
	Result       string `json:"result"`
	Method       string `json:"method"`
	Round        *int   `json:"round,omitempty"`
	FoughtAt     string `json:"foughtAt"`
	PointsEarned int    `json:"pointsEarned"`
}

func toRecordResponse(rec fight.Record) recordResponse {
	return recordResponse{
		ID:           rec.ID,
		FighterID:    rec.FighterID,
		OpponentName: rec.OpponentName,
		Result:       string(rec.Result),
		Method:       string(rec.Method),
		Round:        rec.Round,
		FoughtAt:     rec.FoughtAt.Format(time.RFC3339),
		PointsEarned: rec.PointsEarned,
	}
}

type progressResponse struct {
	CurrentTier     string  `json:"currentTier"`
	Points          int     `json:"points"`
	PointsToNext    int     `json:"pointsToNext"`
	ProgressPercent float64 `json:"progressPercent"`
}

type tierResponse struct {
	Name      string   `json:"name"`
	MinPoints int      `json:"minPoints"`
	MaxPoints *int     `json:"maxPoints,omitempty"`
	Benefits  []string `json:"benefits"`
}

type statsResponse struct {
	TotalFighters    int            `json:"totalFighters"`
	TierDistribution map[string]int `json:"tierDistribution"`
	RecentPromotions int            `json:"recentPromotions"`
	RecentDemotions  int            `json:"recentDemotions"`
}

type reportRequest struct {
	OpponentName string    `json:"opponentName"`
	Result       string    `json:"result"`
	Method       string    `json:"method"`
	Round        *int      `json:"round,omitempty"`
	FoughtAt     time.Time `json:"foughtAt,omitempty"`
	WeightClass  string    `json:"weightClass,omitempty"`
}

type progressionResponse struct {
	NewPoints    int    `json:"newPoints"`
	PreviousTier string `json:"previousTier"`
	NewTier      string `json:"newTier"`
	Transition   string `json:"transition,omitempty"`
}

type reportResponse struct {
	Record      recordResponse      `json:"record"`
	Progression progressionResponse `json:"progression"`
}

type openDisputeRequest struct {
	OpponentID   string   `json:"opponentId,omitempty"`
	OpponentName string   `json:"opponentName,omitempty"`
	Category     string   `json:"category"`
	Reason       string   `json:"reason"`
	EvidenceRefs []string `json:"evidenceRefs,omitempty"`
	FightID      string   `json:"fightId,omitempty"`
}

type disputeResponse struct {
	ID             string   `json:"id"`
	DisputerID     string   `json:"disputerId"`
	OpponentID     *string  `json:"opponentId,omitempty"`
	OpponentName   *string  `json:"opponentName,omitempty"`
	Category       string   `json:"category"`
	Reason         string   `json:"reason"`
	EvidenceRefs   []string `json:"evidenceRefs,omitempty"`
	FightID        *string  `json:"fightId,omitempty"`
	Status         string   `json:"status"`
	ResolutionType *string  `json:"resolutionType,omitempty"`
	Resolution     *string  `json:"resolution,omitempty"`
	CreatedAt      string   `json:"createdAt"`
	ResolvedAt     *string  `json:"resolvedAt,omitempty"`
}

func toDisputeResponse(d dispute.Dispute) disputeResponse {
	resp := disputeResponse{
		ID:           d.ID,
		DisputerID:   d.DisputerID,
		OpponentID:   d.OpponentID,
		OpponentName: d.OpponentName,
		Category:     string(d.Category),
		Reason:       d.Reason,
		EvidenceRefs: d.EvidenceRefs,
		FightID:      d.FightID,
		Status:       string(d.Status),
		Resolution:   d.Resolution,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
	}
	if d.ResolutionType != nil {
		rt := string(*d.ResolutionType)
		resp.ResolutionType = &rt
	}
	if d.ResolvedAt != nil {
		at := d.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &at
	}
	return resp
}

type messageRequest struct {
	Body string `json:"body"`
}

type messageResponse struct {
	ID         string `json:"id"`
	DisputeID  string `json:"disputeId"`
	SenderID   string `json:"senderId"`
	SenderRole string `json:"senderRole"`
	Body       string `json:"body"`
	CreatedAt  string `json:"createdAt"`
}

func toMessageResponse(m dispute.Message) messageResponse {
	return messageResponse{
		ID:         m.ID,
		DisputeID:  m.DisputeID,
		SenderID:   m.SenderID,
		SenderRole: string(m.SenderRole),
		Body:       m.Body,
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
	}
}

type disputeDetailResponse struct {
	Dispute  disputeResponse   `json:"dispute"`
	Messages []messageResponse `json:"messages"`
}

type resolveRequest struct {
	ResolutionType    string `json:"resolutionType"`
	Resolution        string `json:"resolution"`
	AdminNotes        string `json:"adminNotes,omitempty"`
	MessageToDisputer string `json:"messageToDisputer,omitempty"`
	MessageToOpponent string `json:"messageToOpponent,omitempty"`
	OpponentID        string `json:"opponentId,omitempty"`
}

type resolveResponse struct {
	Dispute             disputeResponse      `json:"dispute"`
	OpponentID          string               `json:"opponentId,omitempty"`
	DisputerProgression *progressionResponse `json:"disputerProgression,omitempty"`
	OpponentProgression *progressionResponse `json:"opponentProgression,omitempty"`
}
