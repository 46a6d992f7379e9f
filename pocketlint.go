// Package pocketlint is a photo-journal sync engine and self-hostable
// backend. The engine side (Reconciler, ImageCache, SortItems, Settings)
// merges remote record snapshots into a session's item list, resolving
// images through a write-once local cache. The server side exposes the
// remote record store and blob store over a JSON API that Client speaks.
package pocketlint

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// App is the pocketlintd server. It wires together the record store, blob
// store, middleware, and the JSON API.
type App struct {
	Config Config
	Echo   *echo.Echo
	Store  *RecordStore
	Blobs  *FileBlobStore

	logger       *slog.Logger
	detector     Detector
	loginLimiter *loginLimiter
}

// New creates an App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// setup initializes stores, middleware, and routes. Split from Start so
// tests can drive the Echo instance without binding a listener.
func (a *App) setup() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("pocketlint: SessionSecret is required")
	}

	store, err := NewRecordStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("pocketlint: init record store: %w", err)
	}
	a.Store = store

	blobs, err := NewFileBlobStore(a.Config.BlobDir)
	if err != nil {
		return fmt.Errorf("pocketlint: init blob store: %w", err)
	}
	a.Blobs = blobs

	a.loginLimiter = newLoginLimiter(5, time.Minute)

	a.Echo.HideBanner = true
	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

// Start initializes the stores and serves the API until the listener
// closes.
func (a *App) Start() error {
	if err := a.setup(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	api := a.Echo.Group("/api")

	api.POST("/register", a.handleRegister)
	api.POST("/login", a.handleLogin)
	api.POST("/logout", a.handleLogout)

	auth := api.Group("", a.requireUser)
	auth.GET("/items", a.handleSnapshot)
	auth.GET("/items/:filename", a.handleGetItem)
	auth.PUT("/items/:filename", a.handlePutItem)
	auth.PATCH("/items/:filename", a.handlePatchItem)
	auth.DELETE("/items/:filename", a.handleDeleteItem)
	auth.POST("/photos", a.handlePhotoUpload)
	auth.GET("/blobs/:userID/:name", a.handleGetBlob)
	auth.GET("/changes", a.handleChanges)
	auth.GET("/settings", a.handleGetSettings)
	auth.PUT("/settings", a.handlePutSettings)
}

// Close cleans up resources. Call when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
