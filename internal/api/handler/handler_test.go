package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"courtmate/backend/internal/dto"
	"courtmate/backend/internal/service"
	pkgerrors "courtmate/backend/pkg/errors"
	"courtmate/backend/pkg/jwt"
	"courtmate/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	tokenResult  *dto.TokenResponse
	err          error
	logoutClaims *jwt.Claims
}

func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.TokenResponse, error) {
	return m.tokenResult, m.err
}
func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.tokenResult, m.err
}
func (m *mockAuthService) RefreshToken(_ context.Context, _ *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	return m.tokenResult, m.err
}
func (m *mockAuthService) Logout(_ context.Context, claims *jwt.Claims) error {
	m.logoutClaims = claims
	return m.err
}

// ── Mock SlotService / QueryService ──

type mockSlotService struct {
	createResult *dto.SlotResponse
	cancelResult *dto.CancelSlotResponse
	err          error
	lastCaller   string
	lastCancel   *dto.CancelSlotRequest
}

func (m *mockSlotService) Create(_ context.Context, _ *dto.CreateSlotRequest, callerID string) (*dto.SlotResponse, error) {
	m.lastCaller = callerID
	return m.createResult, m.err
}
func (m *mockSlotService) Cancel(_ context.Context, _ string, req *dto.CancelSlotRequest, callerID string) (*dto.CancelSlotResponse, error) {
	m.lastCaller = callerID
	m.lastCancel = req
	return m.cancelResult, m.err
}

type mockQueryService struct {
	detail    *dto.SlotResponse
	list      []dto.SlotResponse
	err       error
	lastQuery *dto.NearbySlotsQuery
}

func (m *mockQueryService) GetSlotDetail(_ context.Context, _, _ string) (*dto.SlotResponse, error) {
	return m.detail, m.err
}
func (m *mockQueryService) GetNearbySlots(_ context.Context, q *dto.NearbySlotsQuery, _ string) ([]dto.SlotResponse, error) {
	m.lastQuery = q
	return m.list, m.err
}
func (m *mockQueryService) GetMySlots(_ context.Context, _ *dto.MySlotsQuery, _ string) ([]dto.SlotResponse, error) {
	return m.list, m.err
}

// ── Mock ApplicationService ──

type mockApplicationService struct {
	applyResult   *dto.ApplicationResponse
	respondResult *dto.RespondResponse
	err           error
}

func (m *mockApplicationService) Apply(_ context.Context, _ *dto.ApplyRequest, _ string) (*dto.ApplicationResponse, error) {
	return m.applyResult, m.err
}
func (m *mockApplicationService) Respond(_ context.Context, _ string, _ *dto.RespondRequest, _ string) (*dto.RespondResponse, error) {
	return m.respondResult, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportRoster(_ context.Context, _, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportCalendar(_ context.Context, _, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

const (
	testUserID = "test-user-id"
	testSlotID = "3f1f0c3e-8a3b-4c55-9d7e-0a9b2f5b6c11"
	testAppID  = "9b2c4d6e-1f3a-4b5c-8d7e-6f5a4b3c2d1e"
)

// withAuth 模拟 JWT 中间件注入用户信息
func withAuth(c *gin.Context) {
	c.Set(ContextUserID, testUserID)
	c.Set(ContextClaims, &jwt.Claims{UserID: testUserID, TokenType: jwt.TokenTypeAccess})
	c.Next()
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// 错误映射
// ═══════════════════════════════════════════════════════════

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestHandleError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
		wantMsg    string
	}{
		{"validation", pkgerrors.New(pkgerrors.KindValidation, "人数无效"), http.StatusBadRequest, codeValidation, "人数无效"},
		{"not found", pkgerrors.New(pkgerrors.KindNotFound, "约球不存在"), http.StatusNotFound, codeNotFound, "约球不存在"},
		{"permission", pkgerrors.New(pkgerrors.KindPermission, "无权操作"), http.StatusForbidden, codePermission, "无权操作"},
		{"invalid state", pkgerrors.New(pkgerrors.KindInvalidState, "约球已取消"), http.StatusConflict, codeInvalidState, "约球已取消"},
		{"capacity", fmt.Errorf("approve: %w", pkgerrors.New(pkgerrors.KindCapacity, "约球已满员")), http.StatusConflict, codeCapacity, "approve: 约球已满员"},
		{"duplicate", pkgerrors.New(pkgerrors.KindDuplicate, "请勿重复申请"), http.StatusConflict, codeDuplicate, "请勿重复申请"},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, codeUnauthenticated, service.ErrInvalidCredentials.Error()},
		{"transient kind", pkgerrors.ErrTransient, http.StatusServiceUnavailable, 50300, "服务暂时不可用，请稍后重试"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, 50300, "服务暂时不可用，请稍后重试"},
		{"net error", fmt.Errorf("dial: %w", timeoutErr{}), http.StatusServiceUnavailable, 50300, "服务暂时不可用，请稍后重试"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, 50000, "服务器内部错误"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { handleError(c, tt.err) })
			w := serve(r, "GET", "/", nil)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			resp := parseResponse(w)
			if resp.Success || resp.Code != tt.wantCode || resp.Message != tt.wantMsg {
				t.Errorf("unexpected envelope: %+v", resp)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{tokenResult: &dto.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900}}
	h := NewAuthHandler(mock)

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := serve(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Account: "alice", Password: "Test1234"}))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if !resp.Success || resp.Code != 0 {
		t.Errorf("expected success, got %+v", resp)
	}
}

func TestAuthHandler_Login_BindError(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := serve(r, "POST", "/auth/login", strings.NewReader(`{"account":""}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != codeValidation || resp.Error == "" {
		t.Errorf("expected validation code with details, got %+v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{err: service.ErrInvalidCredentials})

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := serve(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Account: "alice", Password: "wrong"}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_Register_Created(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{tokenResult: &dto.TokenResponse{AccessToken: "a"}})

	r := gin.New()
	r.POST("/auth/register", h.Register)
	w := serve(r, "POST", "/auth/register", jsonBody(dto.RegisterRequest{Account: "alice", Password: "Test1234"}))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)

	r := gin.New()
	r.POST("/auth/logout", withAuth, h.Logout)
	w := serve(r, "POST", "/auth/logout", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutClaims == nil || mock.logoutClaims.UserID != testUserID {
		t.Error("expected claims to be passed to Logout")
	}
}

func TestAuthHandler_Logout_NoClaims(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	r := gin.New()
	r.POST("/auth/logout", h.Logout)
	w := serve(r, "POST", "/auth/logout", nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SlotHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSlotHandler_Create_Success(t *testing.T) {
	slots := &mockSlotService{createResult: &dto.SlotResponse{ID: "slot-1"}}
	h := NewSlotHandler(slots, &mockQueryService{})

	r := gin.New()
	r.POST("/slots", withAuth, h.Create)
	w := serve(r, "POST", "/slots", jsonBody(dto.CreateSlotRequest{
		Sport:    "tennis",
		VenueID:  "3f1f0c3e-8a3b-4c55-9d7e-0a9b2f5b6c11",
		Datetime: "2026-03-15T10:00:00Z",
		Requirement: &dto.RequirementRequest{
			SimpleLevels: []string{"中级"},
			NeedCount:    2,
		},
	}))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if slots.lastCaller != testUserID {
		t.Errorf("expected caller %s, got %s", testUserID, slots.lastCaller)
	}
}

func TestSlotHandler_Create_CustomValidators(t *testing.T) {
	tests := []struct {
		name string
		req  dto.CreateSlotRequest
	}{
		{"unknown sport", dto.CreateSlotRequest{Sport: "golf", VenueID: "3f1f0c3e-8a3b-4c55-9d7e-0a9b2f5b6c11", Datetime: "2026-03-15T10:00:00Z"}},
		{"unknown level", dto.CreateSlotRequest{
			VenueID:     "3f1f0c3e-8a3b-4c55-9d7e-0a9b2f5b6c11",
			Datetime:    "2026-03-15T10:00:00Z",
			Requirement: &dto.RequirementRequest{SimpleLevels: []string{"大师"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := &mockSlotService{}
			h := NewSlotHandler(slots, &mockQueryService{})

			r := gin.New()
			r.POST("/slots", withAuth, h.Create)
			w := serve(r, "POST", "/slots", jsonBody(tt.req))

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
			if slots.lastCaller != "" {
				t.Error("service should not be called")
			}
		})
	}
}

func TestSlotHandler_Cancel(t *testing.T) {
	slots := &mockSlotService{cancelResult: &dto.CancelSlotResponse{SlotID: "slot-1", Status: "cancelled", AffectedApplications: 2}}
	h := NewSlotHandler(slots, &mockQueryService{})

	r := gin.New()
	r.POST("/slots/:id/cancel", withAuth, h.Cancel)

	// 无请求体也可取消
	w := serve(r, "POST", "/slots/"+testSlotID+"/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = serve(r, "POST", "/slots/"+testSlotID+"/cancel", jsonBody(dto.CancelSlotRequest{Reason: "下雨"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if slots.lastCancel == nil || slots.lastCancel.Reason != "下雨" {
		t.Errorf("expected reason to be forwarded, got %+v", slots.lastCancel)
	}
}

func TestSlotHandler_Cancel_NotHost(t *testing.T) {
	h := NewSlotHandler(&mockSlotService{err: service.ErrSlotNotHost}, &mockQueryService{})

	r := gin.New()
	r.POST("/slots/:id/cancel", withAuth, h.Cancel)
	w := serve(r, "POST", "/slots/"+testSlotID+"/cancel", nil)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestSlotHandler_Nearby(t *testing.T) {
	query := &mockQueryService{list: []dto.SlotResponse{{ID: "a"}, {ID: "b"}}}
	h := NewSlotHandler(&mockSlotService{}, query)

	r := gin.New()
	r.GET("/slots/nearby", withAuth, h.Nearby)

	w := serve(r, "GET", "/slots/nearby?lat=31.23&lng=121.47&radius=3000&simple_level=%E4%B8%AD%E7%BA%A7&simple_level=%E9%AB%98%E7%BA%A7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if query.lastQuery == nil || len(query.lastQuery.SimpleLevels) != 2 || query.lastQuery.Radius != 3000 {
		t.Errorf("query not bound: %+v", query.lastQuery)
	}

	var body struct {
		Data response.ListData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Total != 2 {
		t.Errorf("expected total 2, got %d", body.Data.Total)
	}

	// 缺少坐标
	w = serve(r, "GET", "/slots/nearby?radius=3000", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without location, got %d", w.Code)
	}
}

func TestSlotHandler_Mine_InvalidType(t *testing.T) {
	h := NewSlotHandler(&mockSlotService{}, &mockQueryService{})

	r := gin.New()
	r.GET("/slots/mine", withAuth, h.Mine)
	w := serve(r, "GET", "/slots/mine?type=all", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSlotHandler_Detail_MalformedID(t *testing.T) {
	h := NewSlotHandler(&mockSlotService{}, &mockQueryService{detail: &dto.SlotResponse{ID: testSlotID}})

	r := gin.New()
	r.GET("/slots/:id", withAuth, h.Detail)

	w := serve(r, "GET", "/slots/not-a-uuid", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Success || resp.Code != codeNotFound || resp.Message != service.ErrSlotNotFound.Error() {
		t.Errorf("unexpected envelope: %+v", resp)
	}

	w = serve(r, "GET", "/slots/"+testSlotID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for a valid id, got %d", w.Code)
	}
}

func TestHandlers_MalformedPathID(t *testing.T) {
	slots := &mockSlotService{}
	users := NewUserHandler(nil)
	venues := NewVenueHandler(nil)
	apps := NewApplicationHandler(&mockApplicationService{})
	exports := NewExportHandler(&mockExportService{})
	slotHandler := NewSlotHandler(slots, &mockQueryService{})

	r := gin.New()
	r.POST("/slots/:id/cancel", withAuth, slotHandler.Cancel)
	r.GET("/slots/:id/roster.xlsx", withAuth, exports.ExportRoster)
	r.GET("/slots/:id/calendar.ics", withAuth, exports.ExportCalendar)
	r.POST("/applications/:id/respond", withAuth, apps.Respond)
	r.GET("/venues/:id", withAuth, venues.Detail)
	r.GET("/users/:id", withAuth, users.GetUser)

	tests := []struct {
		name    string
		method  string
		path    string
		wantMsg string
	}{
		{"cancel slot", "POST", "/slots/abc/cancel", service.ErrSlotNotFound.Error()},
		{"roster", "GET", "/slots/abc/roster.xlsx", service.ErrSlotNotFound.Error()},
		{"calendar", "GET", "/slots/abc/calendar.ics", service.ErrSlotNotFound.Error()},
		{"respond", "POST", "/applications/abc/respond", service.ErrApplicationNotFound.Error()},
		{"venue", "GET", "/venues/abc", service.ErrVenueNotFound.Error()},
		{"user", "GET", "/users/abc", service.ErrUserNotFound.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.method == "POST" {
				body = jsonBody(dto.RespondRequest{Action: dto.ActionApprove})
			}
			w := serve(r, tt.method, tt.path, body)
			if w.Code != http.StatusNotFound {
				t.Errorf("expected 404, got %d", w.Code)
			}
			if resp := parseResponse(w); resp.Code != codeNotFound || resp.Message != tt.wantMsg {
				t.Errorf("unexpected envelope: %+v", resp)
			}
		})
	}
	if slots.lastCaller != "" {
		t.Error("service should not be called with a malformed id")
	}
}

func TestSlotHandler_Detail_Unauthenticated(t *testing.T) {
	h := NewSlotHandler(&mockSlotService{}, &mockQueryService{detail: &dto.SlotResponse{ID: "slot-1"}})

	r := gin.New()
	r.GET("/slots/:id", h.Detail)
	w := serve(r, "GET", "/slots/"+testSlotID, nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ApplicationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestApplicationHandler_Apply_Full(t *testing.T) {
	h := NewApplicationHandler(&mockApplicationService{err: service.ErrSlotFull})

	r := gin.New()
	r.POST("/applications", withAuth, h.Apply)
	w := serve(r, "POST", "/applications", jsonBody(dto.ApplyRequest{SlotID: "3f1f0c3e-8a3b-4c55-9d7e-0a9b2f5b6c11"}))

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != codeCapacity {
		t.Errorf("expected code %d, got %d", codeCapacity, resp.Code)
	}
}

func TestApplicationHandler_Respond(t *testing.T) {
	h := NewApplicationHandler(&mockApplicationService{respondResult: &dto.RespondResponse{ApplicationID: "app-1", Status: "rejected"}})

	r := gin.New()
	r.POST("/applications/:id/respond", withAuth, h.Respond)

	w := serve(r, "POST", "/applications/"+testAppID+"/respond", jsonBody(dto.RespondRequest{Action: dto.ActionReject, Reason: "时间冲突"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Message != "已拒绝申请" {
		t.Errorf("unexpected message %q", resp.Message)
	}

	w = serve(r, "POST", "/applications/"+testAppID+"/respond", jsonBody(dto.RespondRequest{Action: "maybe"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown action, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Calendar(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("BEGIN:VCALENDAR\r\n"), filename: "slot_1.ics"}
	h := NewExportHandler(mock)

	r := gin.New()
	r.GET("/slots/:id/calendar.ics", withAuth, h.ExportCalendar)
	w := serve(r, "GET", "/slots/"+testSlotID+"/calendar.ics", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "slot_1.ics") {
		t.Errorf("unexpected disposition %q", cd)
	}
}

func TestExportHandler_Roster_Forbidden(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportForbidden})

	r := gin.New()
	r.GET("/slots/:id/roster.xlsx", withAuth, h.ExportRoster)
	w := serve(r, "GET", "/slots/"+testSlotID+"/roster.xlsx", nil)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}
