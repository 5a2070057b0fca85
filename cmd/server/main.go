package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stellar/go/strkey"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/SenErenn/StellaRep/internal/cache"
	"github.com/SenErenn/StellaRep/internal/config"
	"github.com/SenErenn/StellaRep/internal/database"
	"github.com/SenErenn/StellaRep/internal/errors"
	"github.com/SenErenn/StellaRep/internal/ethereum"
	"github.com/SenErenn/StellaRep/internal/monitoring"
	"github.com/SenErenn/StellaRep/internal/ratelimit"
	"github.com/SenErenn/StellaRep/internal/reputation"
	"github.com/SenErenn/StellaRep/internal/resilience"
	"github.com/SenErenn/StellaRep/internal/security"
	"github.com/SenErenn/StellaRep/internal/soroban"
	"github.com/SenErenn/StellaRep/internal/stellar"
	"github.com/SenErenn/StellaRep/internal/types"
)

var ethereumAddressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)

	// Initialize database and repository
	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Initialize monitoring system
	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	// Ledger adapters and the on-chain publisher
	stellarAdapter := stellar.NewAdapter(cfg.HorizonURL, appMetrics)
	ethereumAdapter := ethereum.NewAdapter(cfg.EtherscanBaseURL, cfg.EtherscanAPIKey, appMetrics)
	publisher := soroban.NewPublisher(cfg.SorobanRPCURL, cfg.SorobanContractID,
		cfg.SorobanNetworkPassphrase, cfg.SorobanAdminSecret, appMetrics)

	if !publisher.IsConfigured() {
		slog.Warn("Soroban publishing disabled, contract ID or admin secret missing")
	}

	service := reputation.NewService(stellarAdapter, ethereumAdapter, repo, publisher, appLogger)

	// Rate limiting with Redis and in-memory fallback
	redisClient, err := ratelimit.NewRedisClient(cfg.RedisURL, "", 0)
	if err != nil {
		slog.Warn("Redis connection failed, rate limiting falls back to in-memory", "error", err)
	}
	rateLimiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics)

	r := gin.New()

	// Add monitoring middleware first (to capture all requests)
	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))
	r.Use(monitoring.SecurityMonitoringMiddleware(appLogger))

	// Add error handling middleware
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	// Security headers and CSP
	r.Use(security.SecurityHeadersMiddleware())
	r.Use(security.CSPMiddleware())

	// CORS for browser clients
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// IP rate limiting
	r.Use(rateLimiter.IPRateLimitMiddleware())

	// Initialize cache (15 minutes TTL)
	appCache := cache.NewCache(15 * time.Minute)
	r.Use(appCache.Middleware(appMetrics))

	// Register external services for degradation management
	resilience.RegisterService("horizon-api", func(ctx context.Context) error {
		return nil
	})
	resilience.RegisterService("etherscan-api", func(ctx context.Context) error {
		return nil
	})
	resilience.RegisterService("soroban-rpc", func(ctx context.Context) error {
		return nil
	})

	// Horizon is fast and tolerant of quick retries; Etherscan rate-limits
	// aggressively and needs the slower backoff.
	resilience.RegisterServicePolicy("horizon-api", resilience.FastRetryPolicy)
	resilience.RegisterServicePolicy("etherscan-api", resilience.SlowRetryPolicy)
	resilience.RegisterServicePolicy("soroban-rpc", resilience.StandardRetryPolicy)

	// Start health checks in background
	resilience.StartHealthChecks(context.Background())

	r.GET("/health", func(c *gin.Context) {
		services := resilience.GetAllServiceHealth()
		metrics := appMetrics.GetStats()

		healthResponse := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"services":  services,
			"metrics":   metrics,
		}

		// A service in emergency state takes the whole instance out of
		// rotation until its error rate recovers
		for name := range services {
			if !resilience.IsServiceAvailable(name) {
				healthResponse["status"] = "degraded"
				c.JSON(http.StatusServiceUnavailable, healthResponse)
				return
			}
		}

		c.JSON(http.StatusOK, healthResponse)
	})

	// Service health and circuit breaker monitoring endpoint
	r.GET("/health/services", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"services":         resilience.GetAllServiceHealth(),
			"circuit_breakers": resilience.GetCircuitBreakerStats(),
			"timestamp":        time.Now().Format(time.RFC3339),
		})
	})

	r.POST("/reputation/calculate", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		var req types.CalculateRequest
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if appErr := validateAddresses(req.StellarAddress, req.EthereumAddress); appErr != nil {
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		slog.Info("Starting reputation calculation",
			"stellar_address", req.StellarAddress,
			"has_ethereum", req.EthereumAddress != "",
			"ip", c.ClientIP())

		result, err := service.CalculateAndStore(ctx, req.StellarAddress, req.EthereumAddress)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, toScoreResponse(result))
	})

	r.GET("/reputation/:stellarAddress", func(c *gin.Context) {
		address := c.Param("stellarAddress")
		if !isValidStellarAddress(address) {
			appErr := errors.NewValidationError("Invalid Stellar address format")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		result, err := service.GetStoredScore(c.Request.Context(), address)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, toScoreResponse(result))
	})

	// Swagger documentation routes
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Metrics endpoint
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, appMetrics.GetStats())
	})

	// Cache stats endpoint
	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, appCache.Stats())
	})

	// Rate limit status endpoint
	r.GET("/ratelimit/status", rateLimiter.HandleRateLimitStatus())

	// Connection pool stats endpoints
	r.GET("/pools/horizon", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "horizon",
			"stats": stellarAdapter.GetPoolStats(),
		})
	})

	r.GET("/pools/etherscan", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "etherscan",
			"stats": ethereumAdapter.GetPoolStats(),
		})
	})

	r.GET("/pools/soroban", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "soroban",
			"stats": publisher.GetPoolStats(),
		})
	})

	r.GET("/pools/database", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "database",
			"stats": db.GetPoolStats(),
		})
	})

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port, "horizon", cfg.HorizonURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close adapter connection pools
	stellarAdapter.Close()
	ethereumAdapter.Close()
	publisher.Close()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// isValidStellarAddress reports whether the address is a well-formed ed25519
// public key (G..., 56 chars with a valid checksum).
func isValidStellarAddress(address string) bool {
	if len(address) != 56 {
		return false
	}
	return strkey.IsValidEd25519PublicKey(address)
}

// validateAddresses rejects malformed wallet addresses before any upstream
// call is made. The Ethereum address is optional.
func validateAddresses(stellarAddress, ethereumAddress string) *errors.AppError {
	if !isValidStellarAddress(stellarAddress) {
		return errors.NewValidationError("Invalid Stellar address format")
	}
	if ethereumAddress != "" && !ethereumAddressPattern.MatchString(ethereumAddress) {
		return errors.NewValidationError("Invalid Ethereum address format")
	}
	return nil
}

func toScoreResponse(result *reputation.Result) types.ScoreResponse {
	return types.ScoreResponse{
		StellarAddress:  result.StellarAddress,
		EthereumAddress: result.EthereumAddress,
		TotalScore:      result.Components.Total,
		StellarScore:    result.Components.Stellar,
		EthereumScore:   result.Components.Ethereum,
		SocialScore:     result.Components.Social,
		Breakdown: types.ScoreBreakdown{
			AccountAgeDays:           result.Stellar.AccountAgeDays,
			TransactionCount:         result.Stellar.TransactionCount,
			StellarBalance:           result.Stellar.Balance,
			HasEthereumHistory:       result.Ethereum.HasHistory,
			EthereumAgeDays:          result.Ethereum.AccountAgeDays,
			EthereumTransactionCount: result.Ethereum.TransactionCount,
			EthereumBalance:          result.Ethereum.Balance,
		},
		CalculatedAt: result.CalculatedAt,
		OnChain:      result.OnChain,
	}
}
