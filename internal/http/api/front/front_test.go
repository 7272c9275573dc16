package front

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/contentforge/studio/internal/config"
	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/db"
	"github.com/contentforge/studio/internal/mail"
	"github.com/contentforge/studio/internal/models"
	"github.com/contentforge/studio/internal/reset"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type frontFixture struct {
	conn   *gorm.DB
	router *gin.Engine
	outbox *mail.Outbox
}

func newFrontFixture(t *testing.T) *frontFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := db.Open(filepath.Join(t.TempDir(), "front.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}

	cfg := config.Default()
	cfg.JWT.Secret = "front-test-secret"
	cfg.Mail.Cooldown = time.Minute
	cfg.Mail.MaxAttempts = 2

	store := credits.NewGormStore(conn)
	recorder := credits.NewRecorder(store, credits.WithSignupBonus(func() int64 { return 100 }))
	engine := reset.NewEngine(store, recorder, cfg.Credits.Tiers, cfg.Reset.BatchSize)
	outbox := mail.NewOutbox()

	r := gin.New()
	RegisterFrontRoutes(r, Deps{
		DB:       conn,
		JWT:      cfg.JWT,
		Mail:     cfg.Mail,
		Credits:  cfg.Credits,
		Store:    store,
		Recorder: recorder,
		Accessor: credits.NewBalanceAccessor(store, nil, 0),
		Engine:   engine,
		Mailer:   outbox,
	})
	return &frontFixture{conn: conn, router: r, outbox: outbox}
}

func (f *frontFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if errUnmarshal := json.Unmarshal(w.Body.Bytes(), &out); errUnmarshal != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), errUnmarshal)
	}
	return out
}

func (f *frontFixture) signIn(t *testing.T, email string) string {
	t.Helper()

	if w := f.do(t, http.MethodPost, "/v0/front/auth/code", "", gin.H{"email": email}); w.Code != http.StatusOK {
		t.Fatalf("request code: %d %s", w.Code, w.Body.String())
	}
	code, ok := f.outbox.LastCode(email)
	if !ok {
		t.Fatalf("no code delivered to %s", email)
	}
	w := f.do(t, http.MethodPost, "/v0/front/auth/verify", "", gin.H{"email": email, "code": code})
	if w.Code != http.StatusCreated && w.Code != http.StatusOK {
		t.Fatalf("verify code: %d %s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	if token == "" {
		t.Fatalf("missing token in %s", w.Body.String())
	}
	return token
}

func TestSignInOpensAccountWithBonus(t *testing.T) {
	f := newFrontFixture(t)
	token := f.signIn(t, "writer@example.com")

	w := f.do(t, http.MethodGet, "/v0/front/credits", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("balance: %d %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["balance"]; got != float64(100) {
		t.Fatalf("expected balance 100, got %v", got)
	}

	var count int64
	if errCount := f.conn.Model(&models.User{}).Where("email = ?", "writer@example.com").Count(&count).Error; errCount != nil {
		t.Fatalf("count users: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected one account, got %d", count)
	}
}

func TestRequestCodeCooldown(t *testing.T) {
	f := newFrontFixture(t)

	if w := f.do(t, http.MethodPost, "/v0/front/auth/code", "", gin.H{"email": "a@example.com"}); w.Code != http.StatusOK {
		t.Fatalf("first request: %d %s", w.Code, w.Body.String())
	}
	if w := f.do(t, http.MethodPost, "/v0/front/auth/code", "", gin.H{"email": "a@example.com"}); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestVerifyCodeLimitsAttempts(t *testing.T) {
	f := newFrontFixture(t)

	if w := f.do(t, http.MethodPost, "/v0/front/auth/code", "", gin.H{"email": "b@example.com"}); w.Code != http.StatusOK {
		t.Fatalf("request code: %d", w.Code)
	}
	code, _ := f.outbox.LastCode("b@example.com")
	for i := 0; i < 2; i++ {
		if w := f.do(t, http.MethodPost, "/v0/front/auth/verify", "", gin.H{"email": "b@example.com", "code": "000000x"}); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, w.Code)
		}
	}
	if w := f.do(t, http.MethodPost, "/v0/front/auth/verify", "", gin.H{"email": "b@example.com", "code": code}); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after max attempts, got %d", w.Code)
	}
}

func TestConcurrentWrongCodesRespectAttemptLimit(t *testing.T) {
	f := newFrontFixture(t)

	if w := f.do(t, http.MethodPost, "/v0/front/auth/code", "", gin.H{"email": "d@example.com"}); w.Code != http.StatusOK {
		t.Fatalf("request code: %d", w.Code)
	}
	if errUpdate := f.conn.Model(&models.LoginCode{}).Where("email = ?", "d@example.com").Update("attempts", 1).Error; errUpdate != nil {
		t.Fatalf("seed attempts: %v", errUpdate)
	}

	const guesses = 6
	codes := make([]int, guesses)
	var wg sync.WaitGroup
	for i := 0; i < guesses; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v0/front/auth/verify", bytes.NewReader([]byte(`{"email":"d@example.com","code":"000000x"}`)))
		req.Header.Set("Content-Type", "application/json")
		wg.Add(1)
		go func(i int, req *http.Request) {
			defer wg.Done()
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i, req)
	}
	wg.Wait()

	unauthorized, limited := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusUnauthorized:
			unauthorized++
		case http.StatusTooManyRequests:
			limited++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if unauthorized != 1 || limited != guesses-1 {
		t.Fatalf("expected 1 compared guess and %d limited, got %d and %d", guesses-1, unauthorized, limited)
	}
	var row models.LoginCode
	if errFind := f.conn.Where("email = ?", "d@example.com").First(&row).Error; errFind != nil {
		t.Fatalf("load code: %v", errFind)
	}
	if row.Attempts != 2 {
		t.Fatalf("expected attempts to stop at 2, got %d", row.Attempts)
	}
}

func TestConsumeAndHistory(t *testing.T) {
	f := newFrontFixture(t)
	token := f.signIn(t, "c@example.com")

	w := f.do(t, http.MethodPost, "/v0/front/credits/consume", token, gin.H{"amount": 30, "reason": "generate post", "idempotency_key": "gen-1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("consume: %d %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["balance"]; got != float64(70) {
		t.Fatalf("expected balance 70, got %v", got)
	}

	w = f.do(t, http.MethodPost, "/v0/front/credits/consume", token, gin.H{"amount": 30, "reason": "generate post", "idempotency_key": "gen-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("replay: %d %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["replayed"]; got != true {
		t.Fatalf("expected replayed, got %v", got)
	}

	w = f.do(t, http.MethodPost, "/v0/front/credits/consume", token, gin.H{"amount": 500})
	if w.Code != http.StatusConflict {
		t.Fatalf("overdraw: expected 409, got %d", w.Code)
	}
	if got := decode(t, w)["code"]; got != "insufficient_balance" {
		t.Fatalf("expected insufficient_balance, got %v", got)
	}

	w = f.do(t, http.MethodGet, "/v0/front/credits/transactions?limit=1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: %d %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["total"] != float64(2) || body["balance"] != float64(70) {
		t.Fatalf("unexpected history %v", body)
	}
	items, _ := body["transactions"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if first, _ := items[0].(map[string]any); first["type"] != string(models.TransactionConsume) {
		t.Fatalf("expected newest consume first, got %v", first)
	}
}

func TestConsumeRejectsNonPositive(t *testing.T) {
	f := newFrontFixture(t)
	token := f.signIn(t, "d@example.com")

	w := f.do(t, http.MethodPost, "/v0/front/credits/consume", token, gin.H{"amount": 0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFrontFixture(t)

	if w := f.do(t, http.MethodGet, "/v0/front/credits", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/v0/front/credits", "not-a-token", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}
}

func TestDisabledUserRejected(t *testing.T) {
	f := newFrontFixture(t)
	token := f.signIn(t, "e@example.com")

	if errUpdate := f.conn.Model(&models.User{}).Where("email = ?", "e@example.com").Update("disabled", true).Error; errUpdate != nil {
		t.Fatalf("disable user: %v", errUpdate)
	}
	if w := f.do(t, http.MethodGet, "/v0/front/profile", token, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestCatalogListsPublishedOnly(t *testing.T) {
	f := newFrontFixture(t)

	items := []models.ContentItem{
		{Slug: "hook-formulas", Title: "Hook Formulas", Category: "hooks", Summary: "Openers that stop the scroll", Views: 900, Published: true},
		{Slug: "thread-outline", Title: "Thread Outline", Category: "threads", Views: 300, Published: true},
		{Slug: "draft", Title: "Hidden Draft Hook", Category: "hooks", Views: 10, Published: true},
	}
	if errCreate := f.conn.Create(&items).Error; errCreate != nil {
		t.Fatalf("seed catalog: %v", errCreate)
	}
	if errUpdate := f.conn.Model(&models.ContentItem{}).Where("slug = ?", "draft").Update("published", false).Error; errUpdate != nil {
		t.Fatalf("unpublish draft: %v", errUpdate)
	}

	w := f.do(t, http.MethodGet, "/v0/front/catalog?q=HOOK", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["total"]; got != float64(1) {
		t.Fatalf("expected one match, got %v", got)
	}

	if w := f.do(t, http.MethodGet, "/v0/front/catalog/draft", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unpublished, got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/v0/front/catalog/thread-outline", "", nil); w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}
}

func TestPublicConfig(t *testing.T) {
	f := newFrontFixture(t)

	w := f.do(t, http.MethodGet, "/v0/front/config", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("config: %d", w.Code)
	}
	body := decode(t, w)
	if body["site_name"] != "Studio" {
		t.Fatalf("expected default site name, got %v", body["site_name"])
	}
	tiers, _ := body["tiers"].([]any)
	if len(tiers) != 2 {
		t.Fatalf("expected two paid tiers, got %v", body["tiers"])
	}
}
