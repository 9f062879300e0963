package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"saldo_insoluto_app_go/config"
	"saldo_insoluto_app_go/db"
	"saldo_insoluto_app_go/handlers"
	"saldo_insoluto_app_go/middleware"
	"saldo_insoluto_app_go/models"
	"saldo_insoluto_app_go/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.MigrateAll(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Resolution PDF archive (R2 or local fallback)
	services.InitializeStorage(cfg)

	// Autofill spreadsheets
	handlers.Lookup = services.NewExcelLookup(cfg.ExcelDataDir)
	if err := handlers.Lookup.Load(); err != nil {
		log.Printf("[WARNING] No se pudieron cargar los Excel de referencia: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Public routes (no authentication required)
	e.GET("/api/health", handlers.HealthHandler)
	e.POST("/api/login", handlers.LoginHandler)
	e.POST("/api/usuarios", handlers.CrearUsuarioHandler)

	// External signing flow routes (no session)
	e.POST("/api/firmar-representante", handlers.FirmarRepresentanteHandler)
	e.POST("/api/firma-beneficiario", handlers.FirmarBeneficiarioHandler)

	// Protected routes
	api := e.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		api.POST("/logout", handlers.LogoutHandler)
		api.GET("/check-session", handlers.CheckSessionHandler)
		api.POST("/validar-clave-funcionario", handlers.ValidarClaveFuncionarioHandler)

		// Intake and expediente reads
		api.POST("/solicitudes", handlers.CrearSolicitudHandler)
		api.GET("/expediente/:expedienteID", handlers.ExpedienteHandler)
		api.GET("/revision-expediente/:solicitudID", handlers.RevisionExpedienteHandler)
		api.GET("/buscar-saldo-insoluto", handlers.BuscarSaldoInsolutoHandler)
		api.GET("/solicitudes-rechazadas", handlers.SolicitudesRechazadasHandler)

		// Signatures
		api.POST("/firmar-funcionario", handlers.FirmarFuncionarioHandler)
		api.POST("/firmar-solicitud-funcionario/:solicitudID", handlers.FirmarSolicitudFuncionarioHandler)
		api.POST("/firmar-solicitud-funcionario-directo/:solicitudID", handlers.FirmarSolicitudFuncionarioDirectoHandler)
		api.GET("/firmas-beneficiarios/:expedienteID", handlers.FirmasBeneficiariosHandler)

		// Calculation
		api.POST("/calcular-saldo-insoluto", handlers.CalcularSaldoInsolutoHandler)
		api.GET("/calculo-existente/:expedienteID", handlers.CalculoExistenteHandler)
		api.GET("/calculo-completo/:expedienteID", handlers.CalculoCompletoHandler)

		// Documents
		api.POST("/upload-documento", handlers.SubirDocumentoHandler)
		api.GET("/download-documento/:documentoID", handlers.DescargarDocumentoHandler)
		api.GET("/documentos/:solicitudID", handlers.ListarDocumentosHandler)
		api.DELETE("/documentos/:documentoID", handlers.EliminarDocumentoHandler)
		api.GET("/download-expediente-completo/:expedienteID", handlers.DescargarExpedienteCompletoHandler)

		// Correction window
		api.POST("/enviar/:solicitudID", handlers.EnviarSolicitudHandler)
		api.POST("/reenviar/:solicitudID", handlers.ReenviarSolicitudHandler)

		// Autofill lookups
		api.GET("/autocompletar/representante", handlers.BuscarRepresentanteHandler)
		api.GET("/autocompletar/causante", handlers.BuscarCausanteHandler)
		api.GET("/autocompletar/beneficiarios", handlers.BuscarBeneficiariosHandler)
		api.GET("/autocompletar/beneficiario", handlers.BuscarBeneficiarioPorRUTHandler)
		api.GET("/autocompletar/status", handlers.ExcelStatusHandler)

		// Supervisory review (jefatura only)
		jefatura := api.Group("")
		jefatura.Use(middleware.RequireRole(models.RolJefatura))
		{
			jefatura.GET("/solicitudes-pendientes", handlers.SolicitudesPendientesHandler)
			jefatura.GET("/aprobacion-items/:solicitudID", handlers.AprobacionItemsHandler)
			jefatura.POST("/aprobacion-items/:solicitudID", handlers.SetAprobacionItemHandler)
			jefatura.POST("/aprobar/:solicitudID", handlers.AprobarSolicitudHandler)
			jefatura.GET("/generar-resolucion/:expedienteID", handlers.GenerarResolucionHandler)
			jefatura.POST("/autocompletar/recargar", handlers.RecargarExcelHandler)
		}
	}

	// Start background cleanup jobs (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := services.CleanupExpiredSessions(db.DB); err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
		}
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
