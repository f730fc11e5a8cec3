package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath       string
	UploadDir    string
	GeneratedDir string
	OutputDir    string
	RawMailDir   string

	HTTPAddr          string
	MaxUploadBytes    int
	RequestTimeoutSec int

	LogLevel  string
	LogFormat string

	TablesPath         string
	TablesURL          string
	TablesToken        string
	TablesRateLimitRPS int
	TablesTimeoutMs    int

	LabelBrand         string
	LabelWhatsAppPhone string
	LabelQRTemplate    string
	PreviewDPI         int

	ArtifactRetentionHours int
	CleanupIntervalMin     int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider     string
	MailListenerLabel        string
	MailListenerIntervalSec  int
	MailListenerFetchMax     int
	MailListenerProcessBatch int
	MailListenerQuery        string
	MailListenerAutoExport   bool
}

const DefaultQRTemplate = "https://wa.me/{phone}?text=Hola,%20me%20interesa%20el%20equipo%20SN:%20{serial}"

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:       getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		UploadDir:    getEnv("UPLOAD_DIR", filepath.Join(cwd, "uploads")),
		GeneratedDir: getEnv("GENERATED_DIR", filepath.Join(cwd, "generated")),
		OutputDir:    getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		RawMailDir:   getEnv("RAW_MAIL_DIR", filepath.Join(cwd, "data", "raw")),

		HTTPAddr:          getEnv("HTTP_ADDR", ":5000"),
		MaxUploadBytes:    getEnvInt("MAX_UPLOAD_BYTES", 1<<20),
		RequestTimeoutSec: getEnvInt("REQUEST_TIMEOUT_SEC", 30),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		TablesPath:         getEnv("TABLES_PATH", ""),
		TablesURL:          getEnv("TABLES_URL", ""),
		TablesToken:        getEnv("TABLES_TOKEN", ""),
		TablesRateLimitRPS: getEnvInt("TABLES_RATE_LIMIT_RPS", 2),
		TablesTimeoutMs:    getEnvInt("TABLES_TIMEOUT_MS", 15000),

		LabelBrand:         getEnv("LABEL_BRAND", "EmaTecno"),
		LabelWhatsAppPhone: getEnv("LABEL_WHATSAPP_PHONE", ""),
		LabelQRTemplate:    getEnv("LABEL_QR_TEMPLATE", DefaultQRTemplate),
		PreviewDPI:         getEnvInt("PREVIEW_DPI", 300),

		ArtifactRetentionHours: getEnvInt("ARTIFACT_RETENTION_HOURS", 24),
		CleanupIntervalMin:     getEnvInt("CLEANUP_INTERVAL_MIN", 60),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", true),

		MailListenerProvider:     getEnv("MAIL_LISTENER_PROVIDER", "imap"),
		MailListenerLabel:        getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec:  getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 60),
		MailListenerFetchMax:     getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerProcessBatch: getEnvInt("MAIL_LISTENER_PROCESS_BATCH", 20),
		MailListenerQuery:        getEnv("MAIL_LISTENER_QUERY", ""),
		MailListenerAutoExport:   getEnvBool("MAIL_LISTENER_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
