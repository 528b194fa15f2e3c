package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/handler"
	"github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/config"
	"github.com/noah-isme/tutor-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutor-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutor-booking-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, a *app, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	metricsHandler := handler.NewMetricsHandler(a.metrics, a.checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	bookingHandler := handler.NewBookingHandler(a.bookings, a.exports, nil)
	classHandler := handler.NewClassHandler(a.classes)
	availabilityHandler := handler.NewAvailabilityHandler(a.availability)
	paymentHandler := handler.NewPaymentHandler(a.settlement)
	userHandler := handler.NewUserHandler(a.users)

	api := r.Group(cfg.APIPrefix)

	// Provider callbacks authenticate with their own signatures.
	api.POST("/payments/webhooks/:provider", paymentHandler.Webhook)
	api.GET("/payments/sandbox/checkout", paymentHandler.SandboxCheckout)

	if cfg.Env == config.EnvDevelopment {
		api.POST("/dev/tokens", handler.NewAuthHandler(a.auth).DevToken)
	}

	public := api.Group("", middleware.OptionalJWT(a.auth))
	public.GET("/classes/:id", classHandler.Get)
	public.GET("/teachers/:id/classes", classHandler.ListByTeacher)
	public.GET("/teachers/:id/availability", availabilityHandler.ListOpen)

	authed := api.Group("", middleware.JWT(a.auth))
	teachers := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	students := middleware.RequireRoles(models.RoleStudent)

	authed.GET("/me", userHandler.Me)
	authed.POST("/me/profile/complete", userHandler.CompleteProfile)
	authed.GET("/metrics/snapshot", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	authed.POST("/classes", teachers, classHandler.Create)
	authed.PUT("/classes/:id/schedule-days", teachers, classHandler.UpdateScheduleDays)
	authed.POST("/teacher-subjects", teachers, availabilityHandler.CreateSubject)
	authed.POST("/availability", teachers, availabilityHandler.Publish)
	authed.DELETE("/availability/:id", teachers, availabilityHandler.Delete)

	bookings := authed.Group("/bookings")
	bookings.POST("", students, bookingHandler.Create)
	bookings.GET("", bookingHandler.List)
	bookings.GET("/export", bookingHandler.Export)
	bookings.GET("/:id", bookingHandler.Get)
	bookings.GET("/:id/receipt", bookingHandler.Receipt)
	bookings.POST("/:id/payment", bookingHandler.InitiatePayment)
	bookings.POST("/:id/cancel", bookingHandler.Cancel)
	bookings.POST("/:id/complete", bookingHandler.Complete)
	bookings.POST("/:id/review", students, bookingHandler.Review)
	bookings.POST("/:id/assignments", students, bookingHandler.SubmitAssignment)

	return r
}
