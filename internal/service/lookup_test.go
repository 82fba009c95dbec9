package service

import (
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/edocs/internal/storage/recordstore"
	"github.com/bigkaa/edocs/internal/token"
)

func testCodec(t *testing.T) *token.Codec {
	t.Helper()
	c, err := token.New([]byte("test-secret-0123456789abcdef"), 120*time.Second)
	if err != nil {
		t.Fatalf("ошибка создания кодека: %v", err)
	}
	return c
}

func testRecords(t *testing.T) *recordstore.Store {
	t.Helper()
	s, err := recordstore.Open(t.TempDir(), nil, testLogger())
	if err != nil {
		t.Fatalf("ошибка открытия стора: %v", err)
	}
	return s
}

// TestLookup_Hit проверяет выпуск ссылки доставки для известной пары.
func TestLookup_Hit(t *testing.T) {
	records := testRecords(t)
	codec := testCodec(t)

	rec, err := records.Upsert("123456", "SN-001", "a.pdf")
	if err != nil {
		t.Fatalf("ошибка upsert: %v", err)
	}

	svc := NewLookupService(records, codec, "https://edocs.example.com/", testLogger())

	result, lookupErr := svc.Lookup("123456", "SN-001")
	if lookupErr != nil {
		t.Fatalf("неожиданная ошибка: %v", lookupErr)
	}

	if !result.Exists {
		t.Fatal("ожидался exists=true")
	}

	prefix := "https://edocs.example.com/files/" + rec.ID + "?t="
	if !strings.HasPrefix(result.DownloadURL, prefix) {
		t.Errorf("ссылка должна начинаться с %s, получено %s", prefix, result.DownloadURL)
	}

	// Токен из ссылки валиден и привязан к записи
	raw := strings.TrimPrefix(result.DownloadURL, prefix)
	claims, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("токен из ссылки не декодируется: %v", err)
	}
	if err := codec.Validate(claims, rec.ID, codec.Now()); err != nil {
		t.Errorf("токен из ссылки должен быть валиден: %v", err)
	}
}

// TestLookup_Miss проверяет промах: {exists:false} без ошибки.
func TestLookup_Miss(t *testing.T) {
	svc := NewLookupService(testRecords(t), testCodec(t), "http://localhost:8080", testLogger())

	result, lookupErr := svc.Lookup("999999", "SN-404")
	if lookupErr != nil {
		t.Fatalf("промах не должен быть ошибкой: %v", lookupErr)
	}

	if result.Exists {
		t.Error("ожидался exists=false")
	}
	if result.DownloadURL != "" {
		t.Errorf("при промахе ссылки быть не должно: %s", result.DownloadURL)
	}
}

// TestLookup_DeactivatedLooksLikeMiss проверяет неразличимость
// деактивированной записи и неизвестной пары.
func TestLookup_DeactivatedLooksLikeMiss(t *testing.T) {
	records := testRecords(t)

	rec, err := records.Upsert("123456", "SN-001", "a.pdf")
	if err != nil {
		t.Fatalf("ошибка upsert: %v", err)
	}
	if ok, err := records.Deactivate(rec.ID); err != nil || !ok {
		t.Fatalf("ошибка деактивации: ok=%v err=%v", ok, err)
	}

	svc := NewLookupService(records, testCodec(t), "http://localhost:8080", testLogger())

	result, lookupErr := svc.Lookup("123456", "SN-001")
	if lookupErr != nil {
		t.Fatalf("неожиданная ошибка: %v", lookupErr)
	}
	if result.Exists {
		t.Error("деактивированная запись должна выглядеть как промах")
	}
}

// TestLookup_EmptyAfterNormalization проверяет ошибку валидации
// на пустом после нормализации вводе.
func TestLookup_EmptyAfterNormalization(t *testing.T) {
	svc := NewLookupService(testRecords(t), testCodec(t), "http://localhost:8080", testLogger())

	cases := []struct{ nationalID, serial string }{
		{"", "SN-001"},
		{"   ", "SN-001"},
		{"123456", ""},
		{"123456", " \t "},
	}

	for _, c := range cases {
		_, lookupErr := svc.Lookup(c.nationalID, c.serial)
		if lookupErr == nil {
			t.Errorf("Lookup(%q, %q): ожидалась ошибка валидации", c.nationalID, c.serial)
			continue
		}
		if lookupErr.StatusCode != 400 {
			t.Errorf("Lookup(%q, %q): ожидался статус 400, получен %d",
				c.nationalID, c.serial, lookupErr.StatusCode)
		}
	}
}

// TestLookup_ArabicDigits проверяет поиск по арабско-индийскому написанию.
func TestLookup_ArabicDigits(t *testing.T) {
	records := testRecords(t)

	if _, err := records.Upsert("123456", "SN001", "a.pdf"); err != nil {
		t.Fatalf("ошибка upsert: %v", err)
	}

	svc := NewLookupService(records, testCodec(t), "http://localhost:8080", testLogger())

	result, lookupErr := svc.Lookup("١٢٣٤٥٦", " SN 001 ")
	if lookupErr != nil {
		t.Fatalf("неожиданная ошибка: %v", lookupErr)
	}
	if !result.Exists {
		t.Error("эквивалентное написание должно находить запись")
	}
}
