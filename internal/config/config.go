// Package config handles platform configuration
package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr            string
	ArtifactDir         string   // root for per-session capture archives
	MaxPreviewDimension int      // long-edge cap for full-screen previews
	OCRLanguages        []string // tesseract language codes
}

func Load() *Config {
	return &Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		ArtifactDir:         getEnv("ARTIFACT_DIR", "screenshots"),
		MaxPreviewDimension: getEnvInt("MAX_PREVIEW_DIMENSION", 1920),
		OCRLanguages:        getEnvList("OCR_LANGUAGES", []string{"eng"}),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
