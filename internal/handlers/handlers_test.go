package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	dynamo "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"

	"github.com/charterops/lead-pipeline/internal/secrets"
)

// --- mock implementations ---

type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		tables: map[string]map[string]map[string]types.AttributeValue{
			"lead-imports":   {},
			"quote-requests": {},
		},
	}
}

func pk(attrs map[string]types.AttributeValue) string {
	for _, name := range []string{"import_id", "quote_request_id"} {
		if a, ok := attrs[name].(*types.AttributeValueMemberS); ok {
			return a.Value
		}
	}
	return ""
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pk(in.Item)
	if k == "" {
		return nil, errors.New("missing key")
	}
	if in.ConditionExpression != nil && strings.HasPrefix(*in.ConditionExpression, "attribute_not_exists") {
		if _, ok := m.tables[*in.TableName][k]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.tables[*in.TableName][k] = in.Item
	return &dynamo.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.tables[*in.TableName][pk(in.Key)]
	if !ok {
		return &dynamo.GetItemOutput{}, nil
	}
	return &dynamo.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, in *dynamo.UpdateItemInput, optFns ...func(*dynamo.Options)) (*dynamo.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.tables[*in.TableName][pk(in.Key)]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if expected, ok := in.ExpressionAttributeValues[":expected"]; ok {
		cur, _ := item["status"].(*types.AttributeValueMemberS)
		if cur == nil || cur.Value != expected.(*types.AttributeValueMemberS).Value {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if v, ok := in.ExpressionAttributeValues[":new"]; ok {
		item["status"] = v
	}
	if v, ok := in.ExpressionAttributeValues[":ua"]; ok {
		item["updated_at"] = v
	}
	if v, ok := in.ExpressionAttributeValues[":n"]; ok {
		item["note"] = v
	}
	return &dynamo.UpdateItemOutput{Attributes: item}, nil
}

type mockSQS struct {
	mu       sync.Mutex
	messages []string
	fail     bool
}

func (m *mockSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("sqs down")
	}
	m.messages = append(m.messages, *in.MessageBody)
	return &sqs.SendMessageOutput{}, nil
}

// --- helpers ---

func newTestRouter(cfg HandlerConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	RegisterIntakeRoutes(r, cfg)
	RegisterContactRoutes(r, cfg)
	RegisterQuoteRoutes(r, cfg)
	RegisterSecretRoutes(r, cfg)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("response not JSON: %v: %s", err, w.Body.String())
		}
	}
	return w, out
}

func baseConfig(dyn *mockDynamo, q *mockSQS) HandlerConfig {
	cfg := HandlerConfig{
		DynamoDBClient: dyn,
		Secrets: &secrets.Config{
			LeadImportsTable:   "lead-imports",
			QuoteRequestsTable: "quote-requests",
			AutomationKey:      "auto-key",
		},
	}
	if q != nil {
		cfg.SQSClient = q
		cfg.Secrets.IntakeQueueURL = "https://sqs.local/intake"
	}
	return cfg
}

// --- intake surface ---

func TestLeadsWebhook_EnqueueAndPeek(t *testing.T) {
	dyn := newMockDynamo()
	q := &mockSQS{}
	r := newTestRouter(baseConfig(dyn, q))

	w, out := doJSON(t, r, http.MethodPost, "/leads", `{"payload":"{\"name\":\"Jane\"}","source":"make.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	importID, _ := out["import_id"].(string)
	if importID == "" {
		t.Fatalf("expected import_id in response: %v", out)
	}
	if out["queued"] != true {
		t.Fatalf("expected queued=true: %v", out)
	}
	if len(q.messages) != 1 || !strings.Contains(q.messages[0], importID) {
		t.Fatalf("notification not published: %v", q.messages)
	}

	w, out = doJSON(t, r, http.MethodGet, "/leads/"+importID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := out["data"].(map[string]any)
	if data["status"] != "received" {
		t.Fatalf("expected status received, got %v", data["status"])
	}
	if data["raw_data"] != `{"name":"Jane"}` {
		t.Fatalf("raw_data mismatch: %v", data["raw_data"])
	}
}

func TestLeadsWebhook_MissingPayload(t *testing.T) {
	r := newTestRouter(baseConfig(newMockDynamo(), nil))

	w, out := doJSON(t, r, http.MethodPost, "/leads", `{"source":"make.com"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if out["error"] != "missing_payload" {
		t.Fatalf("expected missing_payload, got %v", out["error"])
	}
}

func TestLeadsWebhook_NotifyFailureStillAccepts(t *testing.T) {
	dyn := newMockDynamo()
	q := &mockSQS{fail: true}
	r := newTestRouter(baseConfig(dyn, q))

	w, out := doJSON(t, r, http.MethodPost, "/leads", `{"payload":"x"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("record is durable, expected 200, got %d", w.Code)
	}
	if out["queued"] != false {
		t.Fatalf("expected queued=false, got %v", out["queued"])
	}
}

func TestLeadsStatus_TransitionAndConflict(t *testing.T) {
	r := newTestRouter(baseConfig(newMockDynamo(), nil))

	_, out := doJSON(t, r, http.MethodPost, "/leads", `{"payload":"x"}`)
	id := out["import_id"].(string)

	w, _ := doJSON(t, r, http.MethodPost, "/leads/"+id+"/status", `{"status":"processing"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// regression is a conflict carrying the current status
	w, out = doJSON(t, r, http.MethodPost, "/leads/"+id+"/status", `{"status":"received"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if out["error"] != "invalid_transition" || out["current"] != "processing" {
		t.Fatalf("unexpected conflict body: %v", out)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/leads/unknown/status", `{"status":"processing"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPreflight_CORSHeadersNoBody(t *testing.T) {
	r := newTestRouter(baseConfig(newMockDynamo(), nil))

	req := httptest.NewRequest(http.MethodOptions, "/leads", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("preflight must have no body, got %q", w.Body.String())
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS headers")
	}
}

// --- contact surface ---

func TestValidateEmail_NegativeVerdictIsHTTPSuccess(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"is_valid":false,"status":"undeliverable","reason":"invalid_syntax"}`))
	}))
	defer provider.Close()

	cfg := baseConfig(newMockDynamo(), nil)
	cfg.Secrets.VerifierBaseURL = provider.URL
	cfg.Secrets.VerifierKey = "vk-1"
	r := newTestRouter(cfg)

	w, out := doJSON(t, r, http.MethodPost, "/validate-email", `{"email":"not-an-email"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("negative verdict is success, got %d: %s", w.Code, w.Body.String())
	}
	if out["success"] != true || out["isValid"] != false {
		t.Fatalf("unexpected body: %v", out)
	}
	if out["reason"] != "invalid_syntax" {
		t.Fatalf("provider fields must pass through unrenamed: %v", out)
	}
}

func TestValidatePhone_ProviderErrorSurfaced(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer provider.Close()

	cfg := baseConfig(newMockDynamo(), nil)
	cfg.Secrets.VerifierBaseURL = provider.URL
	cfg.Secrets.VerifierKey = "vk-1"
	r := newTestRouter(cfg)

	w, out := doJSON(t, r, http.MethodPost, "/validate-phone", `{"phone":"+12025550123"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if out["status"] != float64(http.StatusServiceUnavailable) || out["body"] != `{"error":"maintenance"}` {
		t.Fatalf("provider status/body not surfaced: %v", out)
	}
}

func TestValidateEmail_MissingCredential(t *testing.T) {
	cfg := baseConfig(newMockDynamo(), nil)
	cfg.Secrets.VerifierKey = ""
	r := newTestRouter(cfg)

	w, out := doJSON(t, r, http.MethodPost, "/validate-email", `{"email":"jane@example.com"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if out["error"] != "configuration_missing" {
		t.Fatalf("expected configuration_missing, got %v", out)
	}
}

// --- quotes surface ---

func quoteTestConfig(t *testing.T, dyn *mockDynamo) (HandlerConfig, *httptest.Server) {
	replies := map[string][]string{}
	known := map[string]bool{}
	mp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/api/trip-requests":
			known["tr-1"] = true
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"tr-1","state":"open"}`))
		case "/api/quotes/search":
			var q map[string]string
			_ = json.NewDecoder(req.Body).Decode(&q)
			if !known[q["trip_request_id"]] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(`{"quotes":[` + strings.Join(replies[q["trip_request_id"]], ",") + `]}`))
		}
	}))

	cfg := baseConfig(dyn, nil)
	cfg.Secrets.MarketplaceBaseURL = mp.URL
	cfg.Secrets.MarketplaceToken = "mk-token"
	return cfg, mp
}

func TestQuotes_SubmitThenEmptyReplies(t *testing.T) {
	dyn := newMockDynamo()
	cfg, mp := quoteTestConfig(t, dyn)
	defer mp.Close()
	r := newTestRouter(cfg)

	w, out := doJSON(t, r, http.MethodPost, "/quotes",
		`{"departure":"KJFK","arrival":"KLAX","aircraftType":"midsize-jet"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := out["data"].(map[string]any)
	if data["quote_request_id"] != "tr-1" {
		t.Fatalf("expected correlation id in response: %v", out)
	}

	// submission recorded for bookkeeping
	if _, ok := dyn.tables["quote-requests"]["tr-1"]; !ok {
		t.Fatal("quote request not persisted")
	}

	w, out = doJSON(t, r, http.MethodPost, "/quotes/replies", `{"quote_request_id":"tr-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("empty replies are success, got %d", w.Code)
	}
	if list, ok := out["data"].([]any); !ok || len(list) != 0 {
		t.Fatalf("expected empty list, got %v", out["data"])
	}
}

func TestQuotes_SubmitRejectsSameAirports(t *testing.T) {
	cfg, mp := quoteTestConfig(t, newMockDynamo())
	defer mp.Close()
	r := newTestRouter(cfg)

	w, _ := doJSON(t, r, http.MethodPost, "/quotes",
		`{"departure":"KJFK","arrival":"KJFK","aircraftType":"midsize-jet"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 from validation, got %d", w.Code)
	}
}

func TestQuotesReplies_MissingID(t *testing.T) {
	cfg, mp := quoteTestConfig(t, newMockDynamo())
	defer mp.Close()
	r := newTestRouter(cfg)

	w, out := doJSON(t, r, http.MethodPost, "/quotes/replies", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if out["error"] != "missing_quote_request_id" {
		t.Fatalf("unexpected error: %v", out)
	}
}

func TestQuotesReplies_UnknownID(t *testing.T) {
	cfg, mp := quoteTestConfig(t, newMockDynamo())
	defer mp.Close()
	r := newTestRouter(cfg)

	w, out := doJSON(t, r, http.MethodPost, "/quotes/replies", `{"quote_request_id":"nope"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if out["error"] != "invalid_correlation_id" {
		t.Fatalf("unexpected error: %v", out)
	}
}

// --- secrets surface ---

func TestAutomationKey_ReturnsConfiguredKey(t *testing.T) {
	r := newTestRouter(baseConfig(newMockDynamo(), nil))

	w, out := doJSON(t, r, http.MethodGet, "/secrets/automation-key", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if out["key"] != "auto-key" {
		t.Fatalf("unexpected key: %v", out)
	}
}

func TestAutomationKey_NotConfigured(t *testing.T) {
	cfg := baseConfig(newMockDynamo(), nil)
	cfg.Secrets.AutomationKey = ""
	r := newTestRouter(cfg)

	w, _ := doJSON(t, r, http.MethodGet, "/secrets/automation-key", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
