package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/gemvault-backend/api/middleware"
	"github.com/angelmondragon/gemvault-backend/internal/inventory"
	"github.com/angelmondragon/gemvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemvault-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubInventoryService struct {
	inventory.Service

	err        error
	list       inventory.ListParams
	sell       inventory.SellInput
	load       inventory.LoadInput
	group      inventory.GroupSellInput
	bulk       inventory.BulkLoadInput
	upload     []byte
	uploadUser *uuid.UUID
}

func (s *stubInventoryService) List(ctx context.Context, params inventory.ListParams) (*inventory.ItemList, error) {
	s.list = params
	return &inventory.ItemList{Items: []inventory.ItemDTO{}}, s.err
}

func (s *stubInventoryService) Sell(ctx context.Context, input inventory.SellInput) (*inventory.MovementResult, error) {
	s.sell = input
	if s.err != nil {
		return nil, s.err
	}
	return &inventory.MovementResult{Item: inventory.ItemDTO{ID: input.ItemID}}, nil
}

func (s *stubInventoryService) Load(ctx context.Context, input inventory.LoadInput) (*inventory.MovementResult, error) {
	s.load = input
	return &inventory.MovementResult{Item: inventory.ItemDTO{ID: input.ItemID}}, s.err
}

func (s *stubInventoryService) GroupSell(ctx context.Context, input inventory.GroupSellInput) (*inventory.GroupResult, error) {
	s.group = input
	return &inventory.GroupResult{GroupID: uuid.New(), Kind: enums.GroupKindSale}, s.err
}

func (s *stubInventoryService) BulkLoad(ctx context.Context, input inventory.BulkLoadInput) (*inventory.GroupResult, error) {
	s.bulk = input
	return &inventory.GroupResult{GroupID: uuid.New(), Kind: enums.GroupKindLoad}, s.err
}

func (s *stubInventoryService) BulkLoadSpreadsheet(ctx context.Context, r io.Reader, actorID *uuid.UUID, notes *string) (*inventory.GroupResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.upload = body
	s.uploadUser = actorID
	return &inventory.GroupResult{GroupID: uuid.New(), Kind: enums.GroupKindLoad}, s.err
}

func withActor(req *http.Request, userID uuid.UUID, params map[string]string) *http.Request {
	ctx := middleware.WithIdentity(req.Context(), middleware.Identity{UserID: userID, Role: enums.UserRoleAdmin, Authorized: true})
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func TestInventorySellMapsRequest(t *testing.T) {
	svc := &stubInventoryService{}
	actor := uuid.New()
	itemID := uuid.New()

	body := `{"quantity":3,"price":"500","payment_method":"cash","client_name":"Laura"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/"+itemID.String()+"/sell", bytes.NewReader([]byte(body)))
	req = withActor(req, actor, map[string]string{"itemId": itemID.String()})
	resp := httptest.NewRecorder()
	InventorySell(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.sell.ItemID != itemID {
		t.Fatalf("expected item %s got %s", itemID, svc.sell.ItemID)
	}
	if svc.sell.ActorID == nil || *svc.sell.ActorID != actor {
		t.Fatalf("expected actor %s", actor)
	}
	if !svc.sell.Amount.Equal(decimal.NewFromInt(3)) || !svc.sell.Price.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected amount/price %s %s", svc.sell.Amount, svc.sell.Price)
	}
	if svc.sell.PaymentMethod != enums.PaymentMethodCash {
		t.Fatalf("unexpected payment method %s", svc.sell.PaymentMethod)
	}
	if svc.sell.ClientName == nil || *svc.sell.ClientName != "Laura" {
		t.Fatalf("expected client name to be forwarded")
	}
}

func TestInventorySellRejectsNonPositiveQuantity(t *testing.T) {
	svc := &stubInventoryService{}
	itemID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"quantity":0,"price":10,"payment_method":"cash"}`)))
	req = withActor(req, uuid.New(), map[string]string{"itemId": itemID.String()})
	resp := httptest.NewRecorder()
	InventorySell(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.sell.ItemID != uuid.Nil {
		t.Fatalf("service should not be called")
	}
}

func TestInventorySellRejectsUnknownPaymentMethod(t *testing.T) {
	svc := &stubInventoryService{}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"quantity":1,"price":10,"payment_method":"barter"}`)))
	req = withActor(req, uuid.New(), map[string]string{"itemId": uuid.NewString()})
	resp := httptest.NewRecorder()
	InventorySell(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestInventorySellInsufficientStock(t *testing.T) {
	svc := &stubInventoryService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{"available": "2"})}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"quantity":5,"price":10,"payment_method":"card"}`)))
	req = withActor(req, uuid.New(), map[string]string{"itemId": uuid.NewString()})
	resp := httptest.NewRecorder()
	InventorySell(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	envelope := decodeError(t, resp)
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock code got %s", envelope.Error.Code)
	}
	if envelope.Error.Details["available"] != "2" {
		t.Fatalf("expected available balance in details, got %v", envelope.Error.Details)
	}
}

func TestInventorySellInvalidItemID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{}`)))
	req = withActor(req, uuid.New(), map[string]string{"itemId": "not-a-uuid"})
	resp := httptest.NewRecorder()
	InventorySell(&stubInventoryService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestInventoryLoadRequiresActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"quantity":1}`)))
	resp := httptest.NewRecorder()
	InventoryLoad(&stubInventoryService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestInventoryLoadDefaultsPrice(t *testing.T) {
	svc := &stubInventoryService{}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"quantity":"2.5","notes":"lote 12"}`)))
	req = withActor(req, uuid.New(), map[string]string{"itemId": uuid.NewString()})
	resp := httptest.NewRecorder()
	InventoryLoad(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.load.Price != nil {
		t.Fatalf("expected nil price so the item price applies")
	}
	if !svc.load.Amount.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("unexpected amount %s", svc.load.Amount)
	}
}

func TestInventoryListParsesFilters(t *testing.T) {
	svc := &stubInventoryService{}
	categoryID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory?page=2&limit=20&name=esme&categoryId="+categoryID.String()+"&minQuantity=1.5&includeInactive=true", nil)
	resp := httptest.NewRecorder()
	InventoryList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.list.Page != 2 || svc.list.Limit != 20 {
		t.Fatalf("unexpected pagination %+v", svc.list.Params)
	}
	if svc.list.Name != "esme" || !svc.list.IncludeInactive {
		t.Fatalf("unexpected name/inactive filters %+v", svc.list)
	}
	if svc.list.CategoryID == nil || *svc.list.CategoryID != categoryID {
		t.Fatalf("expected category filter")
	}
	if svc.list.MinQuantity == nil || !svc.list.MinQuantity.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("expected min quantity filter")
	}
}

func TestInventoryListRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory?limit=1000", nil)
	resp := httptest.NewRecorder()
	InventoryList(&stubInventoryService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestInventoryGroupSale(t *testing.T) {
	svc := &stubInventoryService{}
	first, second := uuid.New(), uuid.New()
	body, _ := json.Marshal(map[string]any{
		"payment_method": "transfer",
		"lines": []map[string]any{
			{"item_id": first, "quantity": "1", "price": "100"},
			{"item_id": second, "quantity": "2", "price": "50"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/group-sale", bytes.NewReader(body))
	req = withActor(req, uuid.New(), nil)
	resp := httptest.NewRecorder()
	InventoryGroupSale(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.group.Lines) != 2 || svc.group.Lines[1].ItemID != second {
		t.Fatalf("unexpected lines %+v", svc.group.Lines)
	}
	if svc.group.PaymentMethod != enums.PaymentMethodTransfer {
		t.Fatalf("unexpected payment method %s", svc.group.PaymentMethod)
	}
}

func TestInventoryGroupSaleRequiresLines(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"payment_method":"cash","lines":[]}`)))
	req = withActor(req, uuid.New(), nil)
	resp := httptest.NewRecorder()
	InventoryGroupSale(&stubInventoryService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestInventoryBulkLoadByName(t *testing.T) {
	svc := &stubInventoryService{}
	body := `{"rows":[{"name":"Zafiro","category":"Piedras","unit":"kilates","quantity":"4"}],"notes":"feria"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(body)))
	req = withActor(req, uuid.New(), nil)
	resp := httptest.NewRecorder()
	InventoryBulkLoad(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.bulk.Rows) != 1 || svc.bulk.Rows[0].Name != "Zafiro" || svc.bulk.Rows[0].Unit != "kilates" {
		t.Fatalf("unexpected rows %+v", svc.bulk.Rows)
	}
	if svc.bulk.Notes == nil || *svc.bulk.Notes != "feria" {
		t.Fatalf("expected notes forwarded")
	}
}

func TestInventoryBulkLoadSpreadsheetUpload(t *testing.T) {
	svc := &stubInventoryService{}
	actor := uuid.New()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "carga.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("xlsx-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/bulk/xlsx", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = withActor(req, actor, nil)
	resp := httptest.NewRecorder()
	InventoryBulkLoadSpreadsheet(svc, 1, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if string(svc.upload) != "xlsx-bytes" {
		t.Fatalf("unexpected upload %q", svc.upload)
	}
	if svc.uploadUser == nil || *svc.uploadUser != actor {
		t.Fatalf("expected actor forwarded")
	}
}

func TestInventoryBulkLoadSpreadsheetMissingFile(t *testing.T) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("notes", "sin archivo")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = withActor(req, uuid.New(), nil)
	resp := httptest.NewRecorder()
	InventoryBulkLoadSpreadsheet(&stubInventoryService{}, 1, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
