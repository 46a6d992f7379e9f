package pocketlint

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *App) handleRegister(c echo.Context) error {
	var req credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "username and a password of at least 8 characters are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	id, err := a.Store.CreateUser(req.Username, string(hash))
	if err != nil {
		if strings.Contains(err.Error(), "taken") {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"userId": id})
}

func (a *App) handleLogin(c echo.Context) error {
	if !a.loginLimiter.allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}
	var req credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	id, hash, err := a.Store.UserByName(strings.TrimSpace(req.Username))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	}
	if err := setUserSession(c, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"userId": id})
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearUserSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func sessionUser(c echo.Context) string {
	id, _ := c.Get("userID").(string)
	return id
}

func (a *App) handleSnapshot(c echo.Context) error {
	snap, err := a.Store.Snapshot(sessionUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

func (a *App) handleGetItem(c echo.Context) error {
	rec, err := a.Store.Get(sessionUser(c), c.Param("filename"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no such item")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (a *App) handlePutItem(c echo.Context) error {
	filename := c.Param("filename")
	var rec Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if _, err := ParseRecord(filename, rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := a.Store.Put(sessionUser(c), filename, rec); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type patchRequest struct {
	Title       *string `json:"title"`
	TextContent *string `json:"textContent"`
}

func (a *App) handlePatchItem(c echo.Context) error {
	var req patchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	err := a.Store.UpdateFields(sessionUser(c), c.Param("filename"), req.Title, req.TextContent)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no such item")
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleDeleteItem removes the record and its blob together; this is the
// only way an item leaves the collection.
func (a *App) handleDeleteItem(c echo.Context) error {
	userID := sessionUser(c)
	filename := c.Param("filename")
	rec, err := a.Store.Get(userID, filename)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no such item")
	}
	if err != nil {
		return err
	}
	if err := a.Store.Delete(userID, filename); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := a.Blobs.Delete(c.Request().Context(), rec.Image); err != nil {
		a.logger.Warn("delete: blob removal failed",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}
	return c.NoContent(http.StatusNoContent)
}

// handlePhotoUpload is the item creation path: process the photo, store
// the blob under {userId}/{token}.jpg, then create the record keyed by the
// token. Vision tagging runs first so the record carries any detected
// title or text from the start.
func (a *App) handlePhotoUpload(c echo.Context) error {
	userID := sessionUser(c)
	ctx := c.Request().Context()

	file, err := c.FormFile("photo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no photo provided")
	}
	if file.Size > a.Config.MaxUploadSize {
		return echo.NewHTTPError(http.StatusBadRequest, "photo too large")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	data, _, _, err := processImage(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image: "+err.Error())
	}

	set, err := a.Store.Settings(userID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rec := Record{
		Date:        FormatRecordDate(now),
		Title:       c.FormValue("title"),
		TextContent: c.FormValue("textContent"),
	}
	if set.SaveLocation {
		rec.Latitude, _ = strconv.ParseFloat(c.FormValue("latitude"), 64)
		rec.Longitude, _ = strconv.ParseFloat(c.FormValue("longitude"), 64)
	}
	annotate(ctx, a.detector, set, data, &rec, a.logger)

	filename := a.uniqueToken(userID, now)
	rec.Image = blobPath(userID, filename)

	if err := a.Blobs.Upload(ctx, rec.Image, data, nil); err != nil {
		a.logger.Warn("upload: blob store failed",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		return echo.NewHTTPError(http.StatusBadGateway, "photo failed to upload")
	}
	if err := a.Store.Put(userID, filename, rec); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"filename": filename,
		"image":    rec.Image,
	})
}

// uniqueToken returns a filename token that is free in the user's
// collection, stepping forward one second at a time if two photos land on
// the same timestamp.
func (a *App) uniqueToken(userID string, now time.Time) string {
	for {
		token := newFilenameToken(now)
		if _, err := a.Store.Get(userID, token); errors.Is(err, ErrNotFound) {
			return token
		}
		now = now.Add(time.Second)
	}
}

func (a *App) handleGetBlob(c echo.Context) error {
	userID := sessionUser(c)
	if c.Param("userID") != userID {
		return echo.NewHTTPError(http.StatusForbidden, "not your blob")
	}
	path := c.Param("userID") + "/" + c.Param("name")
	data, err := a.Blobs.Download(c.Request().Context(), path, MaxTransferSize)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no such blob")
	}
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/jpeg", data)
}

// handleChanges is the change-notification feed: a long poll that resolves
// true as soon as the user's collection changes, or false at the timeout.
func (a *App) handleChanges(c echo.Context) error {
	signal, cancel := a.Store.Subscribe(sessionUser(c))
	defer cancel()

	timer := time.NewTimer(a.Config.ChangePollTimeout)
	defer timer.Stop()

	select {
	case <-signal:
		return c.JSON(http.StatusOK, map[string]bool{"changed": true})
	case <-timer.C:
		return c.JSON(http.StatusOK, map[string]bool{"changed": false})
	case <-c.Request().Context().Done():
		return c.NoContent(http.StatusNoContent)
	}
}

func (a *App) handleGetSettings(c echo.Context) error {
	set, err := a.Store.Settings(sessionUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, set)
}

func (a *App) handlePutSettings(c echo.Context) error {
	var set Settings
	if err := c.Bind(&set); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := a.Store.SaveSettings(sessionUser(c), set); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
