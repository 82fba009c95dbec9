// Пакет token — кодек короткоживущих токенов доступа к доставке файла.
//
// Токен — компактный JWT (HS256) с claims: rid (id записи), nce (случайный
// nonce) и iat. Подпись HMAC с серверным секретом: структурно корректный,
// но не подписанный сервером токен отклоняется на этапе Decode. Токены
// не хранятся на сервере; валидность — функция их содержимого и часов.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultWindow — окно валидности токена по умолчанию.
const DefaultWindow = 120 * time.Second

// minSecretLen — минимальная длина секрета HMAC в байтах.
const minSecretLen = 16

// nonceLen — длина nonce в байтах (до hex-кодирования).
const nonceLen = 6

// Ошибки валидации токена. Клиенту отдаётся обобщённый отказ,
// различия используются для серверного логирования.
var (
	// ErrTokenInvalid — токен не декодируется: некорректный формат,
	// неверная подпись, недопустимый алгоритм или отсутствующие claims.
	ErrTokenInvalid = errors.New("невалидный токен")

	// ErrTokenMismatch — rid токена не совпадает с id записи из пути.
	ErrTokenMismatch = errors.New("токен выдан для другой записи")

	// ErrTokenExpired — окно валидности истекло.
	ErrTokenExpired = errors.New("срок действия токена истёк")

	// ErrTokenFromFuture — iat в будущем: рассинхронизация часов
	// или подделка.
	ErrTokenFromFuture = errors.New("токен выдан в будущем")
)

// Claims — полезная нагрузка токена доступа.
type Claims struct {
	// RecordID — id записи, к которой токен даёт доступ.
	RecordID string `json:"rid"`
	// Nonce — случайное значение, исключающее совпадение токенов
	// разных выдач для одной записи.
	Nonce string `json:"nce"`

	jwt.RegisteredClaims
}

// Codec — кодек токенов доступа. Stateless, потокобезопасен.
type Codec struct {
	secret []byte
	window time.Duration
	// now — источник времени, подменяется в тестах
	now func() time.Time
}

// New создаёт кодек с указанным секретом и окном валидности.
// window <= 0 заменяется на DefaultWindow.
func New(secret []byte, window time.Duration) (*Codec, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("секрет токена короче %d байт", minSecretLen)
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Codec{
		secret: secret,
		window: window,
		now:    time.Now,
	}, nil
}

// Window возвращает окно валидности кодека.
func (c *Codec) Window() time.Duration {
	return c.window
}

// Mint выпускает токен доступа для записи recordID.
func (c *Codec) Mint(recordID string) (string, error) {
	buf := make([]byte, nonceLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	claims := Claims{
		RecordID: recordID,
		Nonce:    hex.EncodeToString(buf),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(c.now().UTC()),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return signed, nil
}

// Decode разбирает и проверяет подпись токена. Любая структурная
// проблема (формат, подпись, алгоритм, отсутствующие поля) даёт
// ErrTokenInvalid — без паники и без деталей для клиента.
func (c *Codec) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.RecordID == "" || claims.IssuedAt == nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Validate проверяет привязку и окно валидности декодированных claims:
// rid должен совпадать с expectedRecordID, iat не в будущем,
// now-iat в пределах окна.
func (c *Codec) Validate(claims *Claims, expectedRecordID string, now time.Time) error {
	if claims.RecordID != expectedRecordID {
		return ErrTokenMismatch
	}

	issuedAt := claims.IssuedAt.Time
	if now.Before(issuedAt) {
		return ErrTokenFromFuture
	}
	if now.Sub(issuedAt) > c.window {
		return ErrTokenExpired
	}
	return nil
}

// Now возвращает текущее время кодека (учитывает подмену в тестах).
func (c *Codec) Now() time.Time {
	return c.now()
}

// WithClock возвращает копию кодека с подменённым источником времени.
// Используется в тестах для проверки границ окна.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	copied := *c
	copied.now = now
	return &copied
}
