package api

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vistaceo/vistaceo-server/internal/ai"
	"github.com/vistaceo/vistaceo-server/internal/auth"
	"github.com/vistaceo/vistaceo-server/internal/db"
	"github.com/vistaceo/vistaceo-server/internal/health"
	"github.com/vistaceo/vistaceo-server/internal/models"
	"github.com/vistaceo/vistaceo-server/internal/radar"
	"github.com/vistaceo/vistaceo-server/internal/signals"
)

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo
	DB          *pgxpool.Pool
	AI          *ai.Client
	Registry    *signals.Registry
	Fetcher     signals.Fetcher
}

var (
	adminSecretOnce    sync.Once
	adminSecretRuntime string
	adminSecretErr     error
)

func NewServer(pool *pgxpool.Pool) (*Server, error) {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:5173"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	gatewayHost := os.Getenv("LLM_GATEWAY_HOST")
	aiClient := ai.NewClient(gatewayHost, os.Getenv("LLM_GEN_MODEL"), os.Getenv("LLM_EMBED_MODEL"))

	registry, err := signals.LoadRegistry()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:          pool,
		Store:       db.NewStore(pool),
		AuthService: auth.NewService(pool),
		Echo:        e,
		AI:          aiClient,
		Registry:    registry,
		Fetcher:     signals.NewCollyFetcher(),
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")

	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	// Business-scoped routes
	app := api.Group("")
	app.Use(auth.Middleware)
	app.GET("/radar", s.handleGetRadar)
	app.POST("/radar/refresh", s.handleRefreshRadar)
	app.GET("/opportunities/:id", s.handleGetOpportunity)
	app.POST("/opportunities/:id/dismiss", s.handleDismissOpportunity)
	app.POST("/opportunities/:id/convert", s.handleConvertOpportunity)
	app.GET("/missions", s.handleListMissions)
	app.PATCH("/missions/:id", s.handleUpdateMission)
	app.POST("/chat", s.handleChat)
	app.GET("/business", s.handleGetBusiness)
	app.PATCH("/business/focus", s.handleUpdateFocus)
	app.POST("/diagnostics", s.handleDiagnostics)
	app.GET("/search", s.handleSearch)

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(s.adminMiddleware)
	admin.POST("/ingest-signals", s.handleIngestSignals)
	admin.POST("/recompute-radar", s.handleRecomputeRadar)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Email) == "" || len(req.Password) < 8 || strings.TrimSpace(req.BusinessName) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email, password (8+ chars) and business_name are required"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrUserExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// rankedRadarForBusiness loads the business context and active candidates
// and runs a full ranking pass.
func (s *Server) rankedRadarForBusiness(c echo.Context, businessID uuid.UUID, weeklyLimit int) (*radar.RankedRadar, *models.BusinessContext, error) {
	ctx := c.Request().Context()

	biz, err := s.Store.GetBusinessContext(ctx, businessID)
	if err != nil {
		return nil, nil, err
	}

	opps, err := s.Store.ListActiveOpportunities(ctx, businessID)
	if err != nil {
		return nil, nil, err
	}

	ranked := radar.FilterAndRankOpportunities(opps, *biz, weeklyLimit)
	return &ranked, biz, nil
}

func (s *Server) handleGetRadar(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}

	weeklyLimit := 0
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 50 {
		weeklyLimit = v
	}

	ranked, _, err := s.rankedRadarForBusiness(c, businessID, weeklyLimit)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, ranked)
}

func (s *Server) handleRefreshRadar(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	biz, err := s.Store.GetBusinessContext(ctx, businessID)
	if err != nil {
		return jsonError(c, err)
	}

	sigs, err := s.Store.ListRecentSignals(ctx, businessID, 100)
	if err != nil {
		return jsonError(c, err)
	}
	if len(sigs) == 0 {
		return c.JSON(http.StatusConflict, map[string]string{"error": "no signals ingested yet; connect a data source first"})
	}

	detected, err := ai.DetectOpportunities(ctx, s.AI, *biz, sigs)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "detection failed: " + err.Error()})
	}

	for _, opp := range detected {
		if !validScore(opp.ImpactScore) || !validScore(opp.EffortScore) {
			continue
		}
		if err := s.Store.InsertOpportunity(ctx, opp); err != nil {
			return jsonError(c, err)
		}

		// Embeddings are best effort; search degrades gracefully without them.
		if embedding, embErr := s.AI.GenerateEmbedding(ctx, opp.Title+" "+opp.Description); embErr == nil {
			if setErr := s.Store.SetOpportunityEmbedding(ctx, opp.ID, embedding); setErr != nil {
				log.Printf("embedding store failed for %s: %v", opp.ID, setErr)
			}
		}
	}

	ranked, _, err := s.rankedRadarForBusiness(c, businessID, 0)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"detected": len(detected),
		"radar":    ranked,
	})
}

func (s *Server) handleGetOpportunity(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}
	oppID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid opportunity id"})
	}
	ctx := c.Request().Context()

	opp, err := s.Store.GetOpportunity(ctx, oppID)
	if err != nil {
		return jsonError(c, err)
	}
	if opp.BusinessID != businessID {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}

	biz, err := s.Store.GetBusinessContext(ctx, businessID)
	if err != nil {
		return jsonError(c, err)
	}
	existing, err := s.Store.ListActiveOpportunities(ctx, businessID)
	if err != nil {
		return jsonError(c, err)
	}

	result := radar.RunQualityGates(*opp, *biz, existing)
	opp.QualityGate = &result

	return c.JSON(http.StatusOK, map[string]interface{}{
		"opportunity":      opp,
		"time_estimate":    radar.TimeEstimate(opp.EffortScore),
		"impacted_drivers": radar.ImpactedDrivers(*opp),
	})
}

func (s *Server) handleDismissOpportunity(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}
	oppID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid opportunity id"})
	}
	ctx := c.Request().Context()

	opp, err := s.Store.GetOpportunity(ctx, oppID)
	if err != nil {
		return jsonError(c, err)
	}
	if opp.BusinessID != businessID {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}

	if err := s.Store.DismissOpportunity(ctx, oppID, time.Now()); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleConvertOpportunity(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}
	oppID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid opportunity id"})
	}
	ctx := c.Request().Context()

	opp, err := s.Store.GetOpportunity(ctx, oppID)
	if err != nil {
		return jsonError(c, err)
	}
	if opp.BusinessID != businessID {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	if opp.IsConverted {
		return c.JSON(http.StatusConflict, map[string]string{"error": "opportunity already converted"})
	}

	biz, err := s.Store.GetBusinessContext(ctx, businessID)
	if err != nil {
		return jsonError(c, err)
	}
	if biz.ActiveMissionsCount >= biz.MaxParallelMissions {
		return c.JSON(http.StatusConflict, map[string]string{"error": "active mission limit reached for this plan"})
	}

	mission, err := ai.GenerateMissionPlan(ctx, s.AI, *biz, *opp)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "mission planning failed: " + err.Error()})
	}

	if err := s.Store.InsertMission(ctx, *mission); err != nil {
		return jsonError(c, err)
	}
	if err := s.Store.MarkOpportunityConverted(ctx, oppID); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusCreated, mission)
}

func (s *Server) handleListMissions(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}

	status := c.QueryParam("status")
	missions, err := s.Store.ListMissions(c.Request().Context(), businessID, status)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, missions)
}

var validMissionStatuses = map[string]bool{"active": true, "completed": true, "abandoned": true}

func (s *Server) handleUpdateMission(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}
	missionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid mission id"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil || !validMissionStatuses[req.Status] {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "status must be active, completed or abandoned"})
	}

	// Ownership check via the mission list keeps the store API small.
	missions, err := s.Store.ListMissions(c.Request().Context(), businessID, "")
	if err != nil {
		return jsonError(c, err)
	}
	owned := false
	for _, m := range missions {
		if m.ID == missionID {
			owned = true
			break
		}
	}
	if !owned {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}

	if err := s.Store.UpdateMissionStatus(c.Request().Context(), missionID, req.Status); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleChat(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}

	var req struct {
		Question string        `json:"question"`
		History  []ai.ChatTurn `json:"history"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "question is required"})
	}

	ranked, biz, err := s.rankedRadarForBusiness(c, businessID, 0)
	if err != nil {
		return jsonError(c, err)
	}

	answer, err := ai.Answer(c.Request().Context(), s.AI, *biz, ranked.Published, req.History, req.Question)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "assistant unavailable: " + err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleGetBusiness(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}

	biz, err := s.Store.GetBusinessContext(c.Request().Context(), businessID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, biz)
}

func (s *Server) handleUpdateFocus(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}

	var req struct {
		Focus string `json:"focus"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	valid := false
	for _, area := range models.FocusAreas {
		if req.Focus == area {
			valid = true
			break
		}
	}
	if !valid {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown focus area"})
	}

	if err := s.Store.UpdateBusinessFocus(c.Request().Context(), businessID, req.Focus); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDiagnostics(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}

	var req struct {
		Answers    []health.Answer `json:"answers"`
		ApplyFocus bool            `json:"apply_focus"`
	}
	if err := c.Bind(&req); err != nil || len(req.Answers) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "answers are required"})
	}

	snapshot := health.Score(businessID, req.Answers, time.Now())

	if req.ApplyFocus && snapshot.SuggestedFocus != "" {
		if err := s.Store.UpdateBusinessFocus(c.Request().Context(), businessID, snapshot.SuggestedFocus); err != nil {
			return jsonError(c, err)
		}
	}

	return c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleSearch(c echo.Context) error {
	businessID, err := auth.BusinessID(c)
	if err != nil {
		return err
	}

	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "q is required"})
	}
	limit := 0
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		limit = v
	}
	ctx := c.Request().Context()

	embedding, err := s.AI.GenerateEmbedding(ctx, query)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "embedding unavailable: " + err.Error()})
	}

	opps, err := s.Store.SearchOpportunities(ctx, businessID, embedding, limit)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, opps)
}

func (s *Server) handleIngestSignals(c echo.Context) error {
	var req struct {
		BusinessID uuid.UUID `json:"business_id"`
		SourceID   string    `json:"source_id"`
		SeedURLs   []string  `json:"seed_urls"`
	}
	if err := c.Bind(&req); err != nil || req.BusinessID == uuid.Nil || req.SourceID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "business_id and source_id are required"})
	}

	src, ok := s.Registry.FindSource(req.SourceID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown source id"})
	}
	if len(req.SeedURLs) > 0 {
		src.Seeds = req.SeedURLs
	}
	ctx := c.Request().Context()

	sigs, err := signals.IngestReviews(ctx, s.Fetcher, src, req.BusinessID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	if err := s.Store.InsertSignals(ctx, sigs); err != nil {
		return jsonError(c, err)
	}
	if err := s.Store.UpdateBusinessDataFlags(ctx, req.BusinessID, true, false); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]int{"ingested": len(sigs)})
}

func (s *Server) handleRecomputeRadar(c echo.Context) error {
	var req struct {
		BusinessID uuid.UUID `json:"business_id"`
	}
	if err := c.Bind(&req); err != nil || req.BusinessID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "business_id is required"})
	}

	ranked, _, err := s.rankedRadarForBusiness(c, req.BusinessID, 0)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, ranked)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret, err := adminSecretFromEnv()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server admin configuration error")
		}
		if c.Request().Header.Get("X-Admin-Secret") != secret {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid admin secret")
		}
		return next(c)
	}
}

func adminSecretFromEnv() (string, error) {
	adminSecretOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
		if secret != "" {
			adminSecretRuntime = secret
			return
		}

		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			adminSecretErr = err
			return
		}
		adminSecretRuntime = base64.RawURLEncoding.EncodeToString(buf)
		log.Printf("ADMIN_SECRET is not set; generated ephemeral secret: %s", adminSecretRuntime)
	})
	if adminSecretErr != nil {
		return "", adminSecretErr
	}
	return adminSecretRuntime, nil
}

func validScore(v int) bool {
	return v >= 1 && v <= 10
}

func jsonError(c echo.Context, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
