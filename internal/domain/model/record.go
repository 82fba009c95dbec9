// Пакет model — доменные модели edocs.
// Record — единая структура записи сертификата, используется
// как in-memory представление и как формат элементов records.json.
package model

// Record — запись сертификата: связывает нормализованную пару
// идентификаторов с физическим PDF-файлом в хранилище.
// Пара (NationalID, Serial) уникальна: повторная загрузка для той же
// пары мутирует существующую запись, дубликаты не создаются.
type Record struct {
	// ID — уникальный идентификатор записи (UUID v4).
	// Генерируется при первом создании, далее неизменен.
	ID string `json:"id"`

	// NationalID — национальный идентификатор в канонической форме
	// (см. пакет ident).
	NationalID string `json:"national_id"`

	// Serial — серийный номер сертификата в канонической форме.
	Serial string `json:"serial"`

	// PDFKey — имя PDF-файла в хранилище (относительно директории
	// данных). Никогда не содержит путь и не отдаётся клиентам.
	PDFKey string `json:"pdf_key"`

	// Active — false означает soft delete: запись остаётся в датасете,
	// но не находится через поиск и доставку.
	Active bool `json:"active"`

	// CreatedAt — время создания записи, epoch milliseconds (UTC).
	CreatedAt int64 `json:"created_at"`

	// UpdatedAt — время последнего изменения PDFKey или Active,
	// epoch milliseconds (UTC).
	UpdatedAt int64 `json:"updated_at"`
}
