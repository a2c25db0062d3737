package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/lms-backend-go/internal/config"
	balanceengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/balance"
	leaveengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/leave"
	policyengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/policy"
	userengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/user"
	workflowengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/workflow"
	appHTTP "github.com/cmlabs-hris/lms-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/lms-backend-go/internal/repository/postgresql"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.App.LogLevel),
	}))

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}

	auditRepo := postgresql.NewAuditLogRepository(db)
	userRepo := postgresql.NewUserRepository(db, auditRepo)
	leaveTypeRepo := postgresql.NewLeaveTypeRepository(db, auditRepo)
	leavePolicyRepo := postgresql.NewLeavePolicyRepository(db, auditRepo)
	leaveBalanceRepo := postgresql.NewLeaveBalanceRepository(db, auditRepo)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db, auditRepo)
	leaveDateRepo := postgresql.NewLeaveRequestDateRepository(db, auditRepo)
	commentRepo := postgresql.NewCommentRepository(db, auditRepo)
	workflowConfigRepo := postgresql.NewWorkflowConfigurationRepository(db, auditRepo)
	workflowStepRepo := postgresql.NewWorkflowStepRepository(db, auditRepo)

	policyEngine := policyengine.NewEngine(leavePolicyRepo, leaveBalanceRepo)
	balanceEngine := balanceengine.NewEngine(leaveBalanceRepo, leavePolicyRepo, leaveTypeRepo, logger)
	workflowEngine := workflowengine.NewEngine(workflowConfigRepo, workflowStepRepo, leaveRequestRepo)
	leaveEngine := leaveengine.NewEngine(
		db,
		userRepo,
		leaveRequestRepo,
		leaveDateRepo,
		leaveBalanceRepo,
		commentRepo,
		policyEngine,
		balanceEngine,
		workflowEngine,
		logger,
	)
	userEngine := userengine.NewEngine(db, userRepo)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	leaveHandler := appHTTP.NewLeaveHandler(leaveEngine)
	approvalHandler := appHTTP.NewApprovalHandler(leaveEngine)
	userHandler := appHTTP.NewUserHandler(userEngine)
	auditHandler := appHTTP.NewAuditHandler(auditRepo)

	router := appHTTP.NewRouter(jwtService, leaveHandler, approvalHandler, userHandler, auditHandler)

	if cfg.Accrual.Enabled {
		scheduler := cron.NewScheduler(logger)
		cron.RegisterAccrualJob(scheduler, db, balanceEngine, cfg.Accrual.Interval)
		scheduler.Start()
		defer scheduler.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	logger.Info("starting server", slog.String("addr", addr), slog.String("env", cfg.App.Env))
	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
