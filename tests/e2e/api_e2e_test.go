package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/backoffice/internal/db"
	"github.com/backoffice/internal/handler"
	"github.com/backoffice/internal/router"
	"github.com/backoffice/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	e2eJWTSecret = "e2e-test-secret"
	rootEmail    = "root@backoffice.test"
	rootPassword = "RootPass123"
)

type e2eSuite struct {
	handler      http.Handler
	gdb          *gorm.DB
	baseURL      string
	adminAccess  string
	adminRefresh string
}

func TestE2E_BackOfficeFlows(t *testing.T) {
	suite := newE2ESuite(t)
	suite.loginAdmin(t)

	t.Run("login envelope", suite.testLoginEnvelope)
	t.Run("registration and portals", suite.testRegistrationAndPortals)
	t.Run("permissions and comments", suite.testPermissionsAndComments)
	t.Run("password reset", suite.testPasswordReset)
	t.Run("user deletion cascade", suite.testUserDeletionCascade)
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.User{},
		&db.PagePermission{},
		&db.Comment{},
		&db.CommentHistory{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	db.DB = gdb
	if err := db.EnsureSuperadmin(rootEmail, "root", rootPassword); err != nil {
		t.Fatalf("failed to seed superadmin: %v", err)
	}

	api := handler.NewAPI(gdb, service.LogMailer{}, e2eJWTSecret, 30*time.Minute, 24*time.Hour)
	engine := router.SetupRouter(api)

	return &e2eSuite{
		handler: engine,
		gdb:     gdb,
		baseURL: "http://example.test",
	}
}

func (s *e2eSuite) loginAdmin(t *testing.T) {
	t.Helper()
	resp := s.requestJSON(t, http.MethodPost, "/api/login", "", map[string]interface{}{
		"email":    rootEmail,
		"password": rootPassword,
		"role":     "superadmin",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin login failed, status %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var payload struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	decodeJSON(t, resp, &payload)
	if payload.Access == "" || payload.Refresh == "" {
		t.Fatalf("admin login returned empty tokens")
	}
	s.adminAccess = payload.Access
	s.adminRefresh = payload.Refresh
}

func (s *e2eSuite) testLoginEnvelope(t *testing.T) {
	resp := s.requestJSON(t, http.MethodPost, "/api/login", "", map[string]interface{}{
		"email":    rootEmail,
		"password": rootPassword,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Access string `json:"access"`
		User   struct {
			Email       string                     `json:"email"`
			Role        string                     `json:"role"`
			Permissions map[string]map[string]bool `json:"permissions"`
		} `json:"user"`
	}
	decodeJSON(t, resp, &payload)
	if payload.User.Email != rootEmail || payload.User.Role != db.RoleSuperadmin {
		t.Fatalf("unexpected login user payload: %+v", payload.User)
	}
	if len(payload.User.Permissions) != len(db.Pages) {
		t.Fatalf("superadmin login should expand all pages, got %d", len(payload.User.Permissions))
	}
	for page, caps := range payload.User.Permissions {
		for action, allowed := range caps {
			if !allowed {
				t.Fatalf("superadmin should hold %s on %s", action, page)
			}
		}
	}

	// The token refresh endpoint rotates the pair.
	refreshResp := s.requestJSON(t, http.MethodPost, "/api/token/refresh", "", map[string]interface{}{
		"refresh": s.adminRefresh,
	})
	defer refreshResp.Body.Close()
	if refreshResp.StatusCode != http.StatusOK {
		t.Fatalf("token refresh expected 200, got %d", refreshResp.StatusCode)
	}
}

func (s *e2eSuite) testRegistrationAndPortals(t *testing.T) {
	resp := s.requestJSON(t, http.MethodPost, "/api/register", s.adminAccess, map[string]interface{}{
		"email":               "clerk@backoffice.test",
		"username":            "clerk",
		"password":            "ClerkPass123",
		"send_password_email": false,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register expected 201, got %d: %s", resp.StatusCode, readBody(t, resp))
	}

	// The same email cannot be registered twice.
	dup := s.requestJSON(t, http.MethodPost, "/api/register", s.adminAccess, map[string]interface{}{
		"email":    "clerk@backoffice.test",
		"username": "clerk-two",
		"password": "ClerkPass123",
	})
	defer dup.Body.Close()
	if dup.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate register expected 400, got %d", dup.StatusCode)
	}

	// A regular account cannot enter through the admin portal.
	portal := s.requestJSON(t, http.MethodPost, "/api/login", "", map[string]interface{}{
		"email":    "clerk@backoffice.test",
		"password": "ClerkPass123",
		"role":     "superadmin",
	})
	defer portal.Body.Close()
	if portal.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong portal expected 403, got %d", portal.StatusCode)
	}
	if body := readBody(t, portal); !strings.Contains(body, "Invalid login portal") {
		t.Fatalf("portal rejection missing detail: %s", body)
	}

	// Registration is an admin operation.
	clerkAccess := s.login(t, "clerk@backoffice.test", "ClerkPass123")
	denied := s.requestJSON(t, http.MethodPost, "/api/register", clerkAccess, map[string]interface{}{
		"email":    "intruder@backoffice.test",
		"username": "intruder",
		"password": "Intruder123",
	})
	defer denied.Body.Close()
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("register by regular user expected 403, got %d", denied.StatusCode)
	}
}

func (s *e2eSuite) testPermissionsAndComments(t *testing.T) {
	clerkAccess := s.login(t, "clerk@backoffice.test", "ClerkPass123")
	clerkID := s.userID(t, "clerk@backoffice.test")

	// The clerk may read and write product comments but not edit them.
	grant := s.requestJSON(t, http.MethodPost, "/api/permissions/update", s.adminAccess, map[string]interface{}{
		"user_id": clerkID,
		"permissions": map[string]interface{}{
			"products": map[string]bool{"view": true, "create": true},
		},
	})
	defer grant.Body.Close()
	if grant.StatusCode != http.StatusOK {
		t.Fatalf("bulk permission update expected 200, got %d: %s", grant.StatusCode, readBody(t, grant))
	}

	mine := s.request(t, http.MethodGet, "/api/permissions/my-permissions", clerkAccess, nil)
	defer mine.Body.Close()
	if mine.StatusCode != http.StatusOK {
		t.Fatalf("my-permissions expected 200, got %d", mine.StatusCode)
	}
	// The endpoint returns the page map at the top level, no wrapper.
	var minePayload map[string]map[string]bool
	decodeJSON(t, mine, &minePayload)
	caps := minePayload["products"]
	if !caps["view"] || !caps["create"] || caps["edit"] || caps["delete"] {
		t.Fatalf("unexpected clerk capabilities: %+v", caps)
	}
	if len(minePayload) != 1 {
		t.Fatalf("regular user permissions should be sparse, got %d pages", len(minePayload))
	}

	created := s.requestJSON(t, http.MethodPost, "/api/comments", clerkAccess, map[string]interface{}{
		"page":    "products",
		"content": "restock bay 7",
	})
	defer created.Body.Close()
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("create comment expected 201, got %d: %s", created.StatusCode, readBody(t, created))
	}
	var comment struct {
		ID uint `json:"id"`
	}
	decodeJSON(t, created, &comment)
	if comment.ID == 0 {
		t.Fatalf("create comment returned empty id")
	}

	// Listing requires the view capability; off-grant pages come back empty.
	listed := s.request(t, http.MethodGet, "/api/comments?page=products", clerkAccess, nil)
	defer listed.Body.Close()
	if listed.StatusCode != http.StatusOK {
		t.Fatalf("list comments expected 200, got %d", listed.StatusCode)
	}
	var comments []map[string]interface{}
	decodeJSON(t, listed, &comments)
	if len(comments) != 1 {
		t.Fatalf("expected 1 product comment, got %d", len(comments))
	}

	hidden := s.request(t, http.MethodGet, "/api/comments?page=finance", clerkAccess, nil)
	defer hidden.Body.Close()
	if hidden.StatusCode != http.StatusOK {
		t.Fatalf("list without view expected 200, got %d", hidden.StatusCode)
	}
	var hiddenList []map[string]interface{}
	decodeJSON(t, hidden, &hiddenList)
	if len(hiddenList) != 0 {
		t.Fatalf("finance comments must be hidden from the clerk")
	}

	// The author holds create but not edit, so their own comment is frozen.
	commentPath := "/api/comments/" + idStr(comment.ID)
	edit := s.requestJSON(t, http.MethodPatch, commentPath, clerkAccess, map[string]interface{}{
		"content": "restock bay 8",
	})
	defer edit.Body.Close()
	if edit.StatusCode != http.StatusForbidden {
		t.Fatalf("author edit without capability expected 403, got %d", edit.StatusCode)
	}

	adminEdit := s.requestJSON(t, http.MethodPatch, commentPath, s.adminAccess, map[string]interface{}{
		"content": "restock bay 8, confirmed",
	})
	defer adminEdit.Body.Close()
	if adminEdit.StatusCode != http.StatusOK {
		t.Fatalf("admin edit expected 200, got %d: %s", adminEdit.StatusCode, readBody(t, adminEdit))
	}

	history := s.request(t, http.MethodGet, "/api/comments/history?comment_id="+idStr(comment.ID), s.adminAccess, nil)
	defer history.Body.Close()
	if history.StatusCode != http.StatusOK {
		t.Fatalf("comment history expected 200, got %d", history.StatusCode)
	}
	var entries []struct {
		OldContent string `json:"old_content"`
		NewContent string `json:"new_content"`
	}
	decodeJSON(t, history, &entries)
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}
	if entries[0].OldContent != "restock bay 7" || entries[0].NewContent != "restock bay 8, confirmed" {
		t.Fatalf("history content mismatch: %+v", entries[0])
	}

	// The ledger itself is admin territory.
	deniedHistory := s.request(t, http.MethodGet, "/api/comments/history", clerkAccess, nil)
	defer deniedHistory.Body.Close()
	if deniedHistory.StatusCode != http.StatusForbidden {
		t.Fatalf("history for regular user expected 403, got %d", deniedHistory.StatusCode)
	}
}

func (s *e2eSuite) testPasswordReset(t *testing.T) {
	oldAccess := s.login(t, "clerk@backoffice.test", "ClerkPass123")

	resp := s.requestJSON(t, http.MethodPost, "/api/password-reset", "", map[string]interface{}{
		"email": "clerk@backoffice.test",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("password reset request expected 200, got %d", resp.StatusCode)
	}

	// Unknown addresses get the identical response.
	unknown := s.requestJSON(t, http.MethodPost, "/api/password-reset", "", map[string]interface{}{
		"email": "ghost@backoffice.test",
	})
	defer unknown.Body.Close()
	if unknown.StatusCode != http.StatusOK {
		t.Fatalf("reset for unknown email expected 200, got %d", unknown.StatusCode)
	}

	var user db.User
	if err := s.gdb.Where("email = ?", "clerk@backoffice.test").First(&user).Error; err != nil {
		t.Fatalf("failed to load clerk: %v", err)
	}
	if user.OTP == nil || user.OTPCreatedAt == nil {
		t.Fatalf("reset request should persist an OTP")
	}
	otp := *user.OTP

	// Past the validity window the code is dead.
	stale := time.Now().Add(-10*time.Minute - time.Second)
	if err := s.gdb.Model(&db.User{}).Where("id = ?", user.ID).
		Update("otp_created_at", stale).Error; err != nil {
		t.Fatalf("failed to backdate OTP: %v", err)
	}
	expired := s.requestJSON(t, http.MethodPost, "/api/password-reset/verify", "", map[string]interface{}{
		"email":        "clerk@backoffice.test",
		"otp":          otp,
		"new_password": "ClerkPass456",
	})
	defer expired.Body.Close()
	if expired.StatusCode != http.StatusBadRequest {
		t.Fatalf("expired OTP expected 400, got %d", expired.StatusCode)
	}

	// Expiry consumed the code, so a fresh one is needed.
	again := s.requestJSON(t, http.MethodPost, "/api/password-reset", "", map[string]interface{}{
		"email": "clerk@backoffice.test",
	})
	defer again.Body.Close()
	if again.StatusCode != http.StatusOK {
		t.Fatalf("second reset request expected 200, got %d", again.StatusCode)
	}
	if err := s.gdb.Where("email = ?", "clerk@backoffice.test").First(&user).Error; err != nil {
		t.Fatalf("failed to reload clerk: %v", err)
	}
	if user.OTP == nil {
		t.Fatalf("second reset request should persist a new OTP")
	}

	verify := s.requestJSON(t, http.MethodPost, "/api/password-reset/verify", "", map[string]interface{}{
		"email":        "clerk@backoffice.test",
		"otp":          *user.OTP,
		"new_password": "ClerkPass456",
	})
	defer verify.Body.Close()
	if verify.StatusCode != http.StatusOK {
		t.Fatalf("OTP verify expected 200, got %d: %s", verify.StatusCode, readBody(t, verify))
	}

	// New password works, old tokens are revoked.
	s.login(t, "clerk@backoffice.test", "ClerkPass456")

	staleToken := s.request(t, http.MethodGet, "/api/profile", oldAccess, nil)
	defer staleToken.Body.Close()
	if staleToken.StatusCode != http.StatusUnauthorized {
		t.Fatalf("pre-reset token expected 401, got %d", staleToken.StatusCode)
	}
}

func (s *e2eSuite) testUserDeletionCascade(t *testing.T) {
	clerkID := s.userID(t, "clerk@backoffice.test")

	resp := s.requestJSON(t, http.MethodDelete, "/api/users/delete", s.adminAccess, map[string]interface{}{
		"user_id": clerkID,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete user expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var count int64
	s.gdb.Model(&db.User{}).Where("id = ?", clerkID).Count(&count)
	if count != 0 {
		t.Fatalf("clerk row should be deleted")
	}
	s.gdb.Model(&db.PagePermission{}).Where("user_id = ?", clerkID).Count(&count)
	if count != 0 {
		t.Fatalf("clerk grants should cascade")
	}
	s.gdb.Model(&db.Comment{}).Where("user_id = ?", clerkID).Count(&count)
	if count != 0 {
		t.Fatalf("clerk comments should cascade")
	}
}

func (s *e2eSuite) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := s.requestJSON(t, http.MethodPost, "/api/login", "", map[string]interface{}{
		"email":    email,
		"password": password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login as %s failed, status %d: %s", email, resp.StatusCode, readBody(t, resp))
	}
	var payload struct {
		Access string `json:"access"`
	}
	decodeJSON(t, resp, &payload)
	return payload.Access
}

func (s *e2eSuite) userID(t *testing.T, email string) string {
	t.Helper()
	var user db.User
	if err := s.gdb.Where("email = ?", email).First(&user).Error; err != nil {
		t.Fatalf("failed to load user %s: %v", email, err)
	}
	return user.ID
}

func (s *e2eSuite) request(t *testing.T, method, path, token string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		t.Fatalf("failed to build request %s %s: %v", method, path, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w.Result()
}

func (s *e2eSuite) requestJSON(t *testing.T, method, path, token string, payload map[string]interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return s.request(t, method, path, token, bytes.NewReader(data))
}

func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	body := readBody(t, resp)
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		t.Fatalf("failed to decode json: %v\nbody=%s", err, body)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(data)
}

func idStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
