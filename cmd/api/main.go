package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"campusportal/internal/auth"
	"campusportal/internal/config"
	"campusportal/internal/httpmiddleware"
	"campusportal/internal/leave"
	"campusportal/internal/metrics"
	"campusportal/internal/navigation"
	"campusportal/internal/queue"
	"campusportal/internal/reconcile"
	"campusportal/internal/roster"
	"campusportal/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "portal:submissions")
	}

	repo := roster.NewRepository(db.Client)
	leaveRepo := leave.NewRepository(db.Client)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil && db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/api/login", func(c *gin.Context) {
		var req struct {
			RollNo   string `json:"rollNo" binding:"required"`
			Password string `json:"password" binding:"required"`
			Roles    string `json:"roles" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		account, err := repo.GetUser(c.Request.Context(), req.RollNo)
		if err != nil {
			metrics.Logins.WithLabelValues("rejected").Inc()
			if errors.Is(err, roster.ErrNoSuchUser) {
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "login failed"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil ||
			account.Role != req.Roles {
			metrics.Logins.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid credentials"})
			return
		}

		token, _, err := auth.Issue(account.RollNo, auth.ParseRole(account.Role), cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "token issue failed"})
			return
		}
		metrics.Logins.WithLabelValues("ok").Inc()
		c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
	})

	api := r.Group("/api", auth.BearerAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	api.GET("/menu", func(c *gin.Context) {
		claims := auth.FromContext(c)
		items := navigation.MenuFor(claims.Role())
		c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
	})

	api.GET("/getAllAttendance", auth.RequireRole(auth.RoleStaff, auth.RoleHOD), func(c *gin.Context) {
		key, err := classKeyFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		students, err := repo.ListStudents(c.Request.Context(), key)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "fetch roster failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": students})
	})

	api.POST("/markAttendance", auth.RequireRole(auth.RoleStaff), func(c *gin.Context) {
		var req struct {
			AttendanceDate string   `json:"attendanceDate" binding:"required"`
			ClassRoom      string   `json:"classRoom" binding:"required"`
			Department     string   `json:"department" binding:"required"`
			Absent         []string `json:"absent"`
			Period         int      `json:"period" binding:"required"`
			Year           int      `json:"Year" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		key := reconcile.ClassKey{Department: req.Department, ClassRoom: req.ClassRoom, Year: req.Year}
		students, err := repo.ListStudents(c.Request.Context(), key)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "fetch roster failed"})
			return
		}

		// Replay the submission through a reconciler so an absentee outside
		// the roster or a bad period is rejected before anything is queued.
		rec := reconcile.New()
		if err := rec.LoadRoster(key, students); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		for _, rollNo := range req.Absent {
			if err := rec.ToggleAbsent(rollNo, true); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
		}
		sub, err := rec.BuildSubmission(req.AttendanceDate, req.Period)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		body, err := json.Marshal(sub)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "encode failed"})
			return
		}
		if err := q.Publish(c.Request.Context(), queue.Message{Type: "attendance", Body: body}); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "submission queue unavailable"})
			return
		}
		metrics.SubmissionsAccepted.Inc()
		c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "attendance submitted"})
	})

	api.GET("/getAttendance", auth.RequireRole(auth.RoleStudent), func(c *gin.Context) {
		claims := auth.FromContext(c)
		raw, err := repo.StudentCumulative(c.Request.Context(), claims.RollNo, c.Query("attendanceDate"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "fetch attendance failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
			"total":        raw.Total,
			"percentCount": raw.PercentCount,
			"percentage":   reconcile.SummarizeCumulative(raw).Percentage,
		}})
	})

	api.GET("/attendance/cc", auth.RequireRole(auth.RoleStaff, auth.RoleHOD), func(c *gin.Context) {
		date := c.Query("attendanceDate")
		classRoom := c.Query("classRoom")
		department := c.Query("department")
		if date == "" || classRoom == "" || department == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "attendanceDate, classRoom and department are required"})
			return
		}
		report, err := repo.PeriodReport(c.Request.Context(), date, department, classRoom)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "fetch report failed"})
			return
		}
		// Wire shape kept as the portal clients expect: Present capitalized,
		// absent lower-cased.
		data := make(gin.H, len(report))
		for period, recSet := range report {
			data[period] = gin.H{"Present": recSet.Present, "absent": recSet.Absent}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "attendance fetched", "data": data})
	})

	api.GET("/getCumulativeAttendance", auth.RequireRole(auth.RoleHOD), func(c *gin.Context) {
		department := c.Query("department")
		if department == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "department is required"})
			return
		}
		rows, err := repo.DepartmentCumulative(c.Request.Context(), department)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "fetch report failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": rows})
	})

	api.GET("/announcements", func(c *gin.Context) {
		limit := 50
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				limit = parsed
			}
		}
		list, err := repo.ListAnnouncements(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "fetch announcements failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
	})

	api.POST("/announcements", auth.RequireRole(auth.RoleHOD), func(c *gin.Context) {
		var req struct {
			Title string `json:"title" binding:"required"`
			Body  string `json:"body" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		posted, err := repo.InsertAnnouncement(c.Request.Context(), roster.Announcement{
			Title:    req.Title,
			Body:     req.Body,
			PostedBy: claims.RollNo,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "post announcement failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": posted})
	})

	api.POST("/leaveRequest/student", auth.RequireRole(auth.RoleStudent), func(c *gin.Context) {
		var req struct {
			Reason   string `json:"reason" binding:"required"`
			FromDate string `json:"fromDate" binding:"required"`
			ToDate   string `json:"toDate" binding:"required"`
			FilePath string `json:"filePath"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		filed, err := leaveRepo.Insert(c.Request.Context(), leave.Request{
			RollNo:   claims.RollNo,
			Reason:   req.Reason,
			FromDate: req.FromDate,
			ToDate:   req.ToDate,
			FilePath: req.FilePath,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "file request failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": filed})
	})

	api.GET("/leaveRequest/student", auth.RequireRole(auth.RoleStudent), func(c *gin.Context) {
		claims := auth.FromContext(c)
		list, err := leaveRepo.ListForStudent(c.Request.Context(), claims.RollNo)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "fetch requests failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
	})

	api.GET("/leaveRequestadmin", auth.RequireRole(auth.RoleStaff, auth.RoleHOD), func(c *gin.Context) {
		list, err := leaveRepo.ListForApprover(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "fetch requests failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
	})

	api.PATCH("/leaverequest/:id", auth.RequireRole(auth.RoleStaff, auth.RoleHOD), func(c *gin.Context) {
		var req struct {
			Status leave.Status `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		updated, err := applyLeaveAction(c.Request.Context(), leaveRepo, c.Param("id"), func(lr leave.Request) (leave.Request, error) {
			return lr.Decide(claims.Role(), req.Status)
		})
		if err != nil {
			writeLeaveError(c, err)
			return
		}
		metrics.LeaveDecisions.WithLabelValues(string(req.Status)).Inc()
		c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
	})

	api.PATCH("/leaverequest/forward/:id", auth.RequireRole(auth.RoleStaff), func(c *gin.Context) {
		claims := auth.FromContext(c)
		updated, err := applyLeaveAction(c.Request.Context(), leaveRepo, c.Param("id"), func(lr leave.Request) (leave.Request, error) {
			return lr.Forward(claims.Role())
		})
		if err != nil {
			writeLeaveError(c, err)
			return
		}
		metrics.LeaveDecisions.WithLabelValues("forward").Inc()
		c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

func classKeyFromQuery(c *gin.Context) (reconcile.ClassKey, error) {
	year, err := strconv.Atoi(c.Query("Year"))
	if err != nil {
		return reconcile.ClassKey{}, errors.New("Year must be a positive integer")
	}
	key := reconcile.ClassKey{
		Department: c.Query("department"),
		ClassRoom:  c.Query("classRoom"),
		Year:       year,
	}
	if key.Department == "" || key.ClassRoom == "" || key.Year <= 0 {
		return reconcile.ClassKey{}, errors.New("classRoom, department and Year are required")
	}
	return key, nil
}

func applyLeaveAction(ctx context.Context, repo *leave.Repository, id string, action func(leave.Request) (leave.Request, error)) (leave.Request, error) {
	lr, err := repo.Get(ctx, id)
	if err != nil {
		return leave.Request{}, err
	}
	updated, err := action(lr)
	if err != nil {
		return leave.Request{}, err
	}
	if err := repo.Update(ctx, updated); err != nil {
		return leave.Request{}, err
	}
	return updated, nil
}

func writeLeaveError(c *gin.Context, err error) {
	var te *leave.TransitionError
	switch {
	case errors.Is(err, leave.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "request not found"})
	case errors.As(err, &te):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": te.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "update failed"})
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
