package core

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// NewRouter constructs the Gin engine with routes wired. Repositories are
// injected so tests can run the full surface against in-memory fakes.
func NewRouter(cfg Config, authService AuthService, codec *TokenCodec, users UserRepository, news NewsRepository, views *ViewCounter, metrics *MetricsService) *gin.Engine {
	r := gin.Default()

	r.Use(OriginRefererMiddleware(cfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/auth/register", func(c *gin.Context) {
			var req struct {
				Username string `json:"username"`
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			req.Username = strings.TrimSpace(req.Username)
			req.Email = strings.TrimSpace(req.Email)
			if req.Username == "" || req.Email == "" || req.Password == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "username, email and password are required")
				return
			}

			hash, err := HashPassword(req.Password)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to hash password")
				return
			}
			ctx := c.Request.Context()
			// Self-registration never grants the superuser flag.
			if _, err := users.Create(ctx, req.Username, req.Email, hash, false); err != nil {
				if isDuplicateErr(err) {
					respondError(c, http.StatusConflict, "CONFLICT", "username or email already exists")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create user")
				return
			}

			record, err := users.FindByUsername(ctx, req.Username)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load created user")
				return
			}
			c.JSON(http.StatusCreated, gin.H{
				"id":           record.ID,
				"username":     record.Username,
				"email":        record.Email,
				"is_superuser": record.IsSuperuser,
				"created_at":   record.CreatedAt,
			})
		})

		api.POST("/auth/login", func(c *gin.Context) {
			var req struct {
				Username string `form:"username"`
				Password string `form:"password"`
			}
			if err := c.ShouldBind(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid form")
				return
			}

			user, err := authService.Authenticate(c.Request.Context(), req.Username, req.Password)
			if err != nil {
				if errors.Is(err, ErrInvalidCredentials) {
					respondError(c, http.StatusBadRequest, "INVALID_CREDENTIALS", "invalid username or password")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to authenticate")
				return
			}

			token, err := codec.Encode(user)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to issue token")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"access_token": token,
				"token_type":   "bearer",
			})
		})

		authed := api.Group("", RequireAuth(codec, users))
		authed.GET("/users/me", func(c *gin.Context) {
			u, ok := CurrentUser(c)
			if !ok {
				respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
				return
			}
			c.JSON(http.StatusOK, u)
		})

		api.GET("/news", func(c *gin.Context) {
			page, perPage, err := parsePagination(c.Query("page"), c.Query("per_page"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			ctx := c.Request.Context()
			items, total, err := news.List(ctx, page, perPage)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch news")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"items":       items,
				"page":        page,
				"per_page":    perPage,
				"total_items": total,
				"total_pages": calcTotalPages(total, perPage),
			})
		})

		api.GET("/news/:id", func(c *gin.Context) {
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil || id <= 0 {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
				return
			}
			ctx := c.Request.Context()
			n, err := news.Get(ctx, id)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "news card not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch news card")
				return
			}
			if views != nil {
				// Best-effort: a counting failure must not fail the read.
				if err := views.Hit(ctx, id); err != nil {
					log.Printf("view counting failed for news %d: %v", id, err)
				}
			}
			c.JSON(http.StatusOK, n)
		})

		priv := api.Group("", RequireAuth(codec, users), SuperuserOnly())

		priv.POST("/news", func(c *gin.Context) {
			var req struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			req.Name = strings.TrimSpace(req.Name)
			req.Description = strings.TrimSpace(req.Description)
			if req.Name == "" || req.Description == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name and description are required")
				return
			}
			ctx := c.Request.Context()
			n, err := news.Create(ctx, req.Name, req.Description)
			if err != nil {
				if isDuplicateErr(err) {
					respondError(c, http.StatusConflict, "CONFLICT", "news card name already exists")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create news card")
				return
			}
			c.JSON(http.StatusCreated, n)
		})

		priv.PATCH("/news/:id", func(c *gin.Context) {
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil || id <= 0 {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
				return
			}
			// Pointer fields so an absent key and an explicit empty value
			// stay distinguishable.
			var req struct {
				Name        *string `json:"name"`
				Description *string `json:"description"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if req.Name == nil && req.Description == nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name or description must be provided")
				return
			}
			// Partial update: unspecified fields keep their current value.
			ctx := c.Request.Context()
			current, err := news.Get(ctx, id)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "news card not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch news card")
				return
			}
			name := current.Name
			if req.Name != nil {
				name = strings.TrimSpace(*req.Name)
			}
			if name == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name must not be empty")
				return
			}
			description := current.Description
			if req.Description != nil {
				description = strings.TrimSpace(*req.Description)
			}
			n, err := news.Update(ctx, id, name, description)
			if err != nil {
				if isDuplicateErr(err) {
					respondError(c, http.StatusConflict, "CONFLICT", "news card name already exists")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to update news card")
				return
			}
			c.JSON(http.StatusOK, n)
		})

		priv.DELETE("/news/:id", func(c *gin.Context) {
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil || id <= 0 {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
				return
			}
			ctx := c.Request.Context()
			if err := news.Delete(ctx, id); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "news card not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to delete news card")
				return
			}
			c.Status(http.StatusNoContent)
		})

		admin := priv.Group("/admin")

		admin.POST("/users", func(c *gin.Context) {
			var req struct {
				Username    string `json:"username"`
				Email       string `json:"email"`
				Password    string `json:"password"`
				IsSuperuser bool   `json:"is_superuser"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			req.Username = strings.TrimSpace(req.Username)
			req.Email = strings.TrimSpace(req.Email)
			if req.Username == "" || req.Email == "" || req.Password == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "username, email and password are required")
				return
			}

			hash, err := HashPassword(req.Password)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to hash password")
				return
			}
			ctx := c.Request.Context()
			if _, err := users.Create(ctx, req.Username, req.Email, hash, req.IsSuperuser); err != nil {
				if isDuplicateErr(err) {
					respondError(c, http.StatusConflict, "CONFLICT", "username or email already exists")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create user")
				return
			}

			record, err := users.FindByUsername(ctx, req.Username)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load created user")
				return
			}
			c.JSON(http.StatusCreated, gin.H{
				"id":           record.ID,
				"username":     record.Username,
				"email":        record.Email,
				"is_superuser": record.IsSuperuser,
				"created_at":   record.CreatedAt,
			})
		})

		admin.GET("/users", func(c *gin.Context) {
			page, perPage, err := parsePagination(c.Query("page"), c.Query("per_page"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			ctx := c.Request.Context()
			items, total, err := users.List(ctx, page, perPage)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch users")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"items":       items,
				"page":        page,
				"per_page":    perPage,
				"total_items": total,
				"total_pages": calcTotalPages(total, perPage),
			})
		})

		admin.GET("/metrics/news", func(c *gin.Context) {
			if metrics == nil {
				respondError(c, http.StatusServiceUnavailable, "METRICS_UNAVAILABLE", "view metrics are not configured")
				return
			}
			overview, err := metrics.Overview(c.Request.Context())
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load metrics")
				return
			}
			c.JSON(http.StatusOK, overview)
		})

		admin.GET("/metrics/news/:id", func(c *gin.Context) {
			if metrics == nil {
				respondError(c, http.StatusServiceUnavailable, "METRICS_UNAVAILABLE", "view metrics are not configured")
				return
			}
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil || id <= 0 {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
				return
			}
			count, err := metrics.CardViews(c.Request.Context(), id)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load metrics")
				return
			}
			c.JSON(http.StatusOK, gin.H{"news_id": id, "views": count})
		})
	}

	return r
}

// isDuplicateErr detects unique-constraint violations without binding to a
// specific store implementation.
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}

func parsePagination(pageStr, perPageStr string) (int, int, error) {
	page := 1
	perPage := defaultPerPage
	if strings.TrimSpace(pageStr) != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("page must be a positive integer")
		}
		page = p
	}
	if strings.TrimSpace(perPageStr) != "" {
		p, err := strconv.Atoi(perPageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("per_page must be a positive integer")
		}
		if p > maxPerPage {
			p = maxPerPage
		}
		perPage = p
	}
	return page, perPage, nil
}

func calcTotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
