// Package urlutil предоставляет утилиты для безопасной работы с URL.
package urlutil

import "net/url"

// MaskURL маскирует URL для безопасного логирования.
// Скрывает path и query, которые могут содержать токены или идентификаторы клиентов.
// Пример: "https://candidate.apkholding.ru/v1/generate?key=XXX" → "https://candidate.apkholding.ru/***"
func MaskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***invalid-url***"
	}
	return u.Scheme + "://" + u.Host + "/***"
}
