package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/hmctech/ordering/internal/orders"
	"github.com/hmctech/ordering/pkg/models"
)

// fakeStore backs both the order lifecycle service and the entity handlers in
// tests, mimicking the key-value tables.
type fakeStore struct {
	mutex     sync.Mutex
	orders    map[string]*models.Order
	devices   map[string]*models.Device
	operators map[string]*models.Operator
	reports   map[string]*models.Report
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:    make(map[string]*models.Order),
		devices:   make(map[string]*models.Device),
		operators: make(map[string]*models.Operator),
		reports:   make(map[string]*models.Report),
	}
}

func (f *fakeStore) PutOrder(ctx context.Context, order *models.Order) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	clone := *order
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakeStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *order
	return &clone, nil
}

func (f *fakeStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	list := make([]models.Order, 0, len(f.orders))
	for _, order := range f.orders {
		list = append(list, *order)
	}
	return list, nil
}

func (f *fakeStore) UpdateOrderFields(ctx context.Context, id string, fields map[string]any) (*models.Order, *models.Order, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	order, ok := f.orders[id]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	old := *order

	doc, _ := json.Marshal(order)
	var asMap map[string]any
	json.Unmarshal(doc, &asMap)
	for k, v := range fields {
		asMap[k] = v
	}
	merged, _ := json.Marshal(asMap)

	var updated models.Order
	if err := json.Unmarshal(merged, &updated); err != nil {
		return nil, nil, err
	}
	f.orders[id] = &updated

	clone := updated
	return &old, &clone, nil
}

func (f *fakeStore) DeleteOrder(ctx context.Context, id string) (*models.Order, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(f.orders, id)
	return order, nil
}

func (f *fakeStore) PutDevice(ctx context.Context, device *models.Device) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	clone := *device
	f.devices[device.ID] = &clone
	return nil
}

func (f *fakeStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	device, ok := f.devices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *device
	return &clone, nil
}

func (f *fakeStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	list := make([]models.Device, 0, len(f.devices))
	for _, device := range f.devices {
		list = append(list, *device)
	}
	return list, nil
}

func (f *fakeStore) DeleteDevice(ctx context.Context, id string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if _, ok := f.devices[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.devices, id)
	return nil
}

func (f *fakeStore) GetOperator(ctx context.Context, id string) (*models.Operator, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	operator, ok := f.operators[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *operator
	return &clone, nil
}

func (f *fakeStore) ListOperators(ctx context.Context) ([]models.Operator, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	list := make([]models.Operator, 0, len(f.operators))
	for _, operator := range f.operators {
		list = append(list, *operator)
	}
	return list, nil
}

func (f *fakeStore) PutReport(ctx context.Context, report *models.Report) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	clone := *report
	f.reports[report.ID] = &clone
	return nil
}

func (f *fakeStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	report, ok := f.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *report
	return &clone, nil
}

func (f *fakeStore) ListReports(ctx context.Context) ([]models.Report, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	list := make([]models.Report, 0, len(f.reports))
	for _, report := range f.reports {
		list = append(list, *report)
	}
	return list, nil
}

func newTestServer() (*Server, *fakeStore) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store := newFakeStore()
	service := orders.NewService(store, nil, logger)
	return NewServer(service, store, logger), store
}

func doRequest(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestCreateAndGetOrder(t *testing.T) {
	server, _ := newTestServer()

	create := doRequest(t, server, "POST", "/orders", models.CreateOrderRequest{
		FirstName: "John",
		LastName:  "Matthews",
		Email:     "jmat@mail.com",
		Answers:   models.Answers{Device: "laptop", OS: "Windows"},
	})
	if create.Code != http.StatusOK {
		t.Fatalf("POST /orders status = %d", create.Code)
	}

	var created struct {
		Message string `json:"message"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(create.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("create response missing generated id")
	}
	if !strings.Contains(created.Message, created.ID) {
		t.Errorf("message %q should mention the id", created.Message)
	}

	get := doRequest(t, server, "GET", "/orders/"+created.ID, nil)
	if get.Code != http.StatusOK {
		t.Fatalf("GET /orders/{id} status = %d", get.Code)
	}

	var fetched struct {
		Item models.Order `json:"Item"`
	}
	if err := json.Unmarshal(get.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("failed to decode get response: %v", err)
	}
	if fetched.Item.FirstName != "John" || fetched.Item.Email != "jmat@mail.com" {
		t.Errorf("fetched order = %+v", fetched.Item)
	}
	if fetched.Item.OrderStatus != "INCOMPLETE" {
		t.Errorf("orderStatus = %q, want INCOMPLETE", fetched.Item.OrderStatus)
	}
	if fetched.Item.DatePaid != "" || fetched.Item.DateCompleted != "" {
		t.Error("date fields should start empty")
	}
}

func TestListOrdersEnvelope(t *testing.T) {
	server, _ := newTestServer()

	doRequest(t, server, "POST", "/orders", models.CreateOrderRequest{
		FirstName: "John", LastName: "Matthews", Email: "jmat@mail.com",
	})

	list := doRequest(t, server, "GET", "/orders", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("GET /orders status = %d", list.Code)
	}

	var envelope struct {
		Items []models.Order `json:"Items"`
		Count int            `json:"Count"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if envelope.Count != 1 || len(envelope.Items) != 1 {
		t.Errorf("Count = %d, Items = %d", envelope.Count, len(envelope.Items))
	}
}

func TestUpdateOrderStatusAndPayment(t *testing.T) {
	server, store := newTestServer()

	create := doRequest(t, server, "POST", "/orders", models.CreateOrderRequest{
		FirstName: "John", LastName: "Matthews", Email: "jmat@mail.com",
	})
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(create.Body.Bytes(), &created)

	payment := doRequest(t, server, "PUT", "/orders/"+created.ID,
		models.UpdateOrderRequest{Type: "payment"})
	if payment.Code != http.StatusOK {
		t.Fatalf("payment update status = %d", payment.Code)
	}
	if !strings.Contains(payment.Body.String(), "payment status updated") {
		t.Errorf("payment body = %s", payment.Body.String())
	}

	status := doRequest(t, server, "PUT", "/orders/"+created.ID,
		models.UpdateOrderRequest{Type: "orderStatus", OrderStatus: "COMPLETE"})
	if status.Code != http.StatusOK {
		t.Fatalf("status update status = %d", status.Code)
	}
	if !strings.Contains(status.Body.String(), "order status updated to COMPLETE") {
		t.Errorf("status body = %s", status.Body.String())
	}

	stored, _ := store.GetOrder(context.Background(), created.ID)
	if stored.OrderStatus != "COMPLETE" || stored.DateCompleted == "" || stored.DatePaid == "" {
		t.Errorf("stored order = %+v", stored)
	}
}

func TestUpdateOrderRejectsInvalidStatus(t *testing.T) {
	server, store := newTestServer()

	create := doRequest(t, server, "POST", "/orders", models.CreateOrderRequest{
		FirstName: "John", LastName: "Matthews", Email: "jmat@mail.com",
	})
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(create.Body.Bytes(), &created)

	resp := doRequest(t, server, "PUT", "/orders/"+created.ID,
		models.UpdateOrderRequest{Type: "orderStatus", OrderStatus: "DONE"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Invalid order status DONE") {
		t.Errorf("body = %s", resp.Body.String())
	}

	stored, _ := store.GetOrder(context.Background(), created.ID)
	if stored.OrderStatus != "INCOMPLETE" {
		t.Errorf("store mutated by rejected update: %q", stored.OrderStatus)
	}
}

func TestUpdateOrderUnknownTypeFails(t *testing.T) {
	server, _ := newTestServer()

	create := doRequest(t, server, "POST", "/orders", models.CreateOrderRequest{
		FirstName: "John", LastName: "Matthews", Email: "jmat@mail.com",
	})
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(create.Body.Bytes(), &created)

	resp := doRequest(t, server, "PUT", "/orders/"+created.ID,
		models.UpdateOrderRequest{Type: "refund"})
	if resp.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.Code)
	}
}

func TestDeleteOrder(t *testing.T) {
	server, _ := newTestServer()

	create := doRequest(t, server, "POST", "/orders", models.CreateOrderRequest{
		FirstName: "John", LastName: "Matthews", Email: "jmat@mail.com",
	})
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(create.Body.Bytes(), &created)

	del := doRequest(t, server, "DELETE", "/orders/"+created.ID, nil)
	if del.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", del.Code)
	}

	get := doRequest(t, server, "GET", "/orders/"+created.ID, nil)
	if get.Code != http.StatusOK {
		t.Fatalf("GET after delete status = %d", get.Code)
	}
	if strings.Contains(get.Body.String(), "\"Item\"") {
		t.Errorf("deleted order still returned: %s", get.Body.String())
	}
}

func TestUnknownRouteReturnsGenericError(t *testing.T) {
	server, _ := newTestServer()

	resp := doRequest(t, server, "GET", "/unknown", nil)
	if resp.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "some error happened") {
		t.Errorf("body = %s", resp.Body.String())
	}
}

func TestCORSHeadersOnEveryResponse(t *testing.T) {
	server, _ := newTestServer()

	for _, path := range []string{"/health", "/orders"} {
		resp := doRequest(t, server, "GET", path, nil)
		if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("%s: Access-Control-Allow-Origin = %q", path, got)
		}
		if got := resp.Header().Get("Access-Control-Allow-Methods"); got != "GET, PUT, POST" {
			t.Errorf("%s: Access-Control-Allow-Methods = %q", path, got)
		}
	}
}

func TestDeviceCRUD(t *testing.T) {
	server, _ := newTestServer()

	create := doRequest(t, server, "POST", "/devices", models.Device{
		Name:     "HP Spectre x360 14",
		Retailer: "Incredible Connection",
		Price:    "R34'999.00",
	})
	if create.Code != http.StatusOK {
		t.Fatalf("POST /devices status = %d", create.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(create.Body.Bytes(), &created)
	if created.ID == "" {
		t.Fatal("device id not generated")
	}

	get := doRequest(t, server, "GET", "/devices/"+created.ID, nil)
	var fetched struct {
		Item models.Device `json:"Item"`
	}
	json.Unmarshal(get.Body.Bytes(), &fetched)
	if fetched.Item.Name != "HP Spectre x360 14" {
		t.Errorf("fetched device = %+v", fetched.Item)
	}
	if fetched.Item.DateUpdated == "" {
		t.Error("dateUpdated should be stamped on create")
	}

	del := doRequest(t, server, "DELETE", "/devices/"+created.ID, nil)
	if del.Code != http.StatusOK {
		t.Fatalf("DELETE /devices/{id} status = %d", del.Code)
	}
}

func TestReportRoundTrip(t *testing.T) {
	server, _ := newTestServer()

	create := doRequest(t, server, "POST", "/reports", models.Report{
		ID:            "order-1",
		DeviceRank1ID: "dev-1",
		DeviceRank2ID: "dev-2",
		DeviceRank3ID: "dev-3",
	})
	if create.Code != http.StatusOK {
		t.Fatalf("POST /reports status = %d", create.Code)
	}
	if !strings.Contains(create.Body.String(), "Added new report for order order-1") {
		t.Errorf("body = %s", create.Body.String())
	}

	get := doRequest(t, server, "GET", "/reports/order-1", nil)
	var fetched struct {
		Item models.Report `json:"Item"`
	}
	json.Unmarshal(get.Body.Bytes(), &fetched)
	if fetched.Item.DeviceRank1ID != "dev-1" {
		t.Errorf("fetched report = %+v", fetched.Item)
	}
}

func TestOperatorsAreReadOnly(t *testing.T) {
	server, store := newTestServer()
	store.operators["op-1"] = &models.Operator{ID: "op-1", Name: "Sam", Email: "sam@hmctech.example"}

	list := doRequest(t, server, "GET", "/operators", nil)
	var envelope struct {
		Items []models.Operator `json:"Items"`
		Count int               `json:"Count"`
	}
	json.Unmarshal(list.Body.Bytes(), &envelope)
	if envelope.Count != 1 {
		t.Errorf("Count = %d", envelope.Count)
	}

	// No write route exists for operators.
	post := doRequest(t, server, "POST", "/operators", map[string]string{"name": "Eve"})
	if post.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /operators status = %d, want 405", post.Code)
	}
}

func TestSeedOrdersLoadsTestData(t *testing.T) {
	server, store := newTestServer()

	resp := doRequest(t, server, "GET", "/orders/populateDatabaseWithTestData", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("seed status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Loaded database with dummy data") {
		t.Errorf("body = %s", resp.Body.String())
	}

	list, _ := store.ListOrders(context.Background())
	if len(list) == 0 {
		t.Error("seed route stored no orders")
	}
	for _, order := range list {
		if order.DatePaid == "" {
			t.Errorf("seeded order %s should be marked paid", order.ID)
		}
	}
}

func TestGetMissingOrderReturnsEmptyResult(t *testing.T) {
	server, _ := newTestServer()

	resp := doRequest(t, server, "GET", fmt.Sprintf("/orders/%s", "missing-id"), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if body := strings.TrimSpace(resp.Body.String()); body != "{}" {
		t.Errorf("body = %s, want {}", body)
	}
}
