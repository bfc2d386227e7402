package service

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"carteras/internal/app/catalog/entity"
	"carteras/pkg/metrics"
)

// CloudinaryClient реализует интерфейс AssetStore поверх HTTP API Cloudinary
// Отвечает только за HTTP запросы к внешнему хранилищу
type CloudinaryClient struct {
	baseURL    string
	cloudName  string
	apiKey     string
	apiSecret  string
	folder     string
	httpClient *http.Client
}

// NewCloudinaryClient создает новый HTTP клиент хранилища изображений
// baseURL переопределяется в тестах, в production это https://api.cloudinary.com
func NewCloudinaryClient(baseURL, cloudName, apiKey, apiSecret, folder string, timeoutSec int) *CloudinaryClient {
	return &CloudinaryClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		folder:    folder,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
	}
}

// uploadResponse - ответ хранилища на загрузку изображения
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// destroyResponse - ответ хранилища на удаление изображения
type destroyResponse struct {
	Result string `json:"result"`
}

// Upload загружает изображение в хранилище
// Возвращает ссылку только при полном успехе: если хранилище не вернуло
// и URL, и public_id, ссылка не фабрикуется и возвращается ошибка
func (c *CloudinaryClient) Upload(ctx context.Context, upload ImageUpload) (entity.Image, error) {
	params := map[string]string{
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
	}
	if c.folder != "" {
		params["folder"] = c.folder
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", upload.Filename)
	if err != nil {
		return entity.Image{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return entity.Image{}, fmt.Errorf("failed to write file payload: %w", err)
	}

	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return entity.Image{}, fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}
	if err := writer.WriteField("api_key", c.apiKey); err != nil {
		return entity.Image{}, fmt.Errorf("failed to write api key: %w", err)
	}
	if err := writer.WriteField("signature", c.sign(params)); err != nil {
		return entity.Image{}, fmt.Errorf("failed to write signature: %w", err)
	}
	if err := writer.Close(); err != nil {
		return entity.Image{}, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return entity.Image{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.AssetUploads.WithLabelValues("failed").Inc()
		return entity.Image{}, fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.AssetUploads.WithLabelValues("failed").Inc()
		respBody, _ := io.ReadAll(resp.Body)
		return entity.Image{}, fmt.Errorf("asset store returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var uploaded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		metrics.AssetUploads.WithLabelValues("failed").Inc()
		return entity.Image{}, fmt.Errorf("failed to decode upload response: %w", err)
	}

	if uploaded.SecureURL == "" || uploaded.PublicID == "" {
		metrics.AssetUploads.WithLabelValues("failed").Inc()
		return entity.Image{}, fmt.Errorf("asset store returned incomplete reference: url=%q public_id=%q",
			uploaded.SecureURL, uploaded.PublicID)
	}

	metrics.AssetUploads.WithLabelValues("success").Inc()
	return entity.Image{URL: uploaded.SecureURL, PublicID: uploaded.PublicID}, nil
}

// Delete удаляет изображение из хранилища по public_id
// Ответ "not found" не считается ошибкой: повторное удаление безопасно
func (c *CloudinaryClient) Delete(ctx context.Context, publicID string) error {
	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
	}

	form := url.Values{}
	for key, value := range params {
		form.Set(key, value)
	}
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(params))

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/destroy", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.AssetDeletes.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to execute destroy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.AssetDeletes.WithLabelValues("failed").Inc()
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("asset store returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var destroyed destroyResponse
	if err := json.NewDecoder(resp.Body).Decode(&destroyed); err != nil {
		metrics.AssetDeletes.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to decode destroy response: %w", err)
	}

	// "not found" означает, что изображения уже нет - для нас это успех
	if destroyed.Result != "ok" && destroyed.Result != "not found" {
		metrics.AssetDeletes.WithLabelValues("failed").Inc()
		return fmt.Errorf("asset store rejected deletion: %s", destroyed.Result)
	}

	metrics.AssetDeletes.WithLabelValues("success").Inc()
	return nil
}

// ExtractPublicID восстанавливает public_id из URL доставки вида
// https://res.cloudinary.com/<cloud>/image/upload/v123/<folder>/<name>.jpg
// Для URL чужого формата возвращает пустую строку
func (c *CloudinaryClient) ExtractPublicID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	const marker = "/upload/"
	idx := strings.Index(parsed.Path, marker)
	if idx == -1 {
		return ""
	}

	segments := strings.Split(parsed.Path[idx+len(marker):], "/")

	// Пропускаем сегмент версии (v123...) и сегменты трансформаций (w_100,c_fill)
	start := 0
	for start < len(segments) && (isVersionSegment(segments[start]) || strings.Contains(segments[start], ",")) {
		start++
	}
	if start >= len(segments) {
		return ""
	}

	publicID := strings.Join(segments[start:], "/")
	publicID = strings.TrimSuffix(publicID, path.Ext(publicID))

	return publicID
}

// isVersionSegment распознаёт сегмент версии вида v1712345678
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	_, err := strconv.ParseInt(segment[1:], 10, 64)
	return err == nil
}

// sign вычисляет подпись запроса: параметры сортируются по имени,
// соединяются в query-строку, к ней добавляется секрет, от результата sha1
func (c *CloudinaryClient) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}
