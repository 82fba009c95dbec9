package service

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bigkaa/edocs/internal/storage/filestore"
	"github.com/bigkaa/edocs/internal/storage/recordstore"
	"github.com/bigkaa/edocs/internal/token"
)

// deliveryFixture — собранный сервис доставки с одной записью и файлом.
type deliveryFixture struct {
	svc     *DeliveryService
	records *recordstore.Store
	codec   *token.Codec
	rid     string
	content []byte
}

func newDeliveryFixture(t *testing.T) *deliveryFixture {
	t.Helper()

	dir := t.TempDir()
	files, err := filestore.New(dir)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	records, err := recordstore.Open(dir, nil, testLogger())
	if err != nil {
		t.Fatalf("ошибка открытия стора: %v", err)
	}
	codec := testCodec(t)

	content := []byte("%PDF-1.4 содержимое сертификата")
	saved, err := files.SavePDF(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("ошибка сохранения файла: %v", err)
	}
	rec, err := records.Upsert("123456", "SN-001", saved.Name)
	if err != nil {
		t.Fatalf("ошибка upsert: %v", err)
	}

	return &deliveryFixture{
		svc:     NewDeliveryService(records, files, codec, testLogger()),
		records: records,
		codec:   codec,
		rid:     rec.ID,
		content: content,
	}
}

// TestServe_Success проверяет успешную доставку по валидному токену.
func TestServe_Success(t *testing.T) {
	fx := newDeliveryFixture(t)

	raw, err := fx.codec.Mint(fx.rid)
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/files/"+fx.rid+"?t="+raw, nil)

	if deliveryErr := fx.svc.Serve(w, r, fx.rid, raw); deliveryErr != nil {
		t.Fatalf("неожиданный отказ: %v", deliveryErr)
	}

	if w.Code != 200 {
		t.Errorf("ожидался статус 200, получен %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type: ожидалось application/pdf, получено %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `inline; filename="document.pdf"` {
		t.Errorf("неожиданный Content-Disposition: %s", cd)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control: ожидалось no-store, получено %s", cc)
	}
	if !bytes.Equal(w.Body.Bytes(), fx.content) {
		t.Error("тело ответа не совпадает с содержимым файла")
	}
}

// TestServe_MissingToken проверяет отказ без токена.
func TestServe_MissingToken(t *testing.T) {
	fx := newDeliveryFixture(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/files/"+fx.rid, nil)

	deliveryErr := fx.svc.Serve(w, r, fx.rid, "")
	if deliveryErr == nil {
		t.Fatal("ожидался отказ без токена")
	}
	if deliveryErr.StatusCode != 403 {
		t.Errorf("ожидался статус 403, получен %d", deliveryErr.StatusCode)
	}
}

// TestServe_GarbageToken проверяет отказ на недекодируемом токене.
func TestServe_GarbageToken(t *testing.T) {
	fx := newDeliveryFixture(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/files/"+fx.rid+"?t=garbage", nil)

	deliveryErr := fx.svc.Serve(w, r, fx.rid, "garbage")
	if deliveryErr == nil {
		t.Fatal("ожидался отказ на мусорном токене")
	}
	if deliveryErr.StatusCode != 403 {
		t.Errorf("ожидался статус 403, получен %d", deliveryErr.StatusCode)
	}
}

// TestServe_TokenForOtherRecord проверяет отказ на токене чужой записи.
func TestServe_TokenForOtherRecord(t *testing.T) {
	fx := newDeliveryFixture(t)

	raw, err := fx.codec.Mint("other-record-id")
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/files/"+fx.rid+"?t="+raw, nil)

	deliveryErr := fx.svc.Serve(w, r, fx.rid, raw)
	if deliveryErr == nil {
		t.Fatal("ожидался отказ на токене чужой записи")
	}
	if deliveryErr.StatusCode != 403 {
		t.Errorf("ожидался статус 403, получен %d", deliveryErr.StatusCode)
	}
}

// TestServe_ExpiredToken проверяет отказ на истёкшем токене.
func TestServe_ExpiredToken(t *testing.T) {
	fx := newDeliveryFixture(t)

	// Токен выпущен в прошлом, за пределами окна
	past := time.Now().Add(-10 * time.Minute)
	pastCodec := fx.codec.WithClock(func() time.Time { return past })
	raw, err := pastCodec.Mint(fx.rid)
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/files/"+fx.rid+"?t="+raw, nil)

	deliveryErr := fx.svc.Serve(w, r, fx.rid, raw)
	if deliveryErr == nil {
		t.Fatal("ожидался отказ на истёкшем токене")
	}
	if deliveryErr.StatusCode != 403 {
		t.Errorf("ожидался статус 403, получен %d", deliveryErr.StatusCode)
	}
	if deliveryErr.Code != "LINK_EXPIRED" {
		t.Errorf("ожидался код LINK_EXPIRED, получен %s", deliveryErr.Code)
	}
}

// TestServe_DeactivatedRecord проверяет 404 для деактивированной записи
// даже при валидном токене.
func TestServe_DeactivatedRecord(t *testing.T) {
	fx := newDeliveryFixture(t)

	raw, err := fx.codec.Mint(fx.rid)
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	if ok, err := fx.records.Deactivate(fx.rid); err != nil || !ok {
		t.Fatalf("ошибка деактивации: ok=%v err=%v", ok, err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/files/"+fx.rid+"?t="+raw, nil)

	deliveryErr := fx.svc.Serve(w, r, fx.rid, raw)
	if deliveryErr == nil {
		t.Fatal("ожидался отказ для деактивированной записи")
	}
	if deliveryErr.StatusCode != 404 {
		t.Errorf("ожидался статус 404, получен %d", deliveryErr.StatusCode)
	}
}

// TestServe_MissingFile проверяет нарушение целостности: валидная
// запись без файла на диске — 500, не 404.
func TestServe_MissingFile(t *testing.T) {
	dir := t.TempDir()
	files, err := filestore.New(dir)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	records, err := recordstore.Open(dir, nil, testLogger())
	if err != nil {
		t.Fatalf("ошибка открытия стора: %v", err)
	}
	codec := testCodec(t)

	// Запись ссылается на несуществующий файл
	rec, err := records.Upsert("123456", "SN-001", "ghost.pdf")
	if err != nil {
		t.Fatalf("ошибка upsert: %v", err)
	}

	svc := NewDeliveryService(records, files, codec, testLogger())

	raw, err := codec.Mint(rec.ID)
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/files/"+rec.ID+"?t="+raw, nil)

	deliveryErr := svc.Serve(w, r, rec.ID, raw)
	if deliveryErr == nil {
		t.Fatal("ожидался отказ для записи без файла")
	}
	if deliveryErr.StatusCode != 500 {
		t.Errorf("ожидался статус 500, получен %d", deliveryErr.StatusCode)
	}
}
