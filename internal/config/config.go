// Load envs from .env
// Load YAML config
// Overlay env vars
// Provide default values

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	LogLevel       string `yaml:"log_level"`
	LogDevelopment bool   `yaml:"log_development"`
	PushgatewayURL string `yaml:"pushgateway_url"`

	//SeenDatabaseURL switches the seen-key history from the local file to Postgres
	SeenDatabaseURL string `yaml:"-"`

	Web104   Web104Config   `yaml:"web104"`
	API      APIConfig      `yaml:"api"`
	IMAP     IMAPConfig     `yaml:"imap"`
	Browser  BrowserConfig  `yaml:"browser"`
	LINE     LINEConfig     `yaml:"line"`
	Telegram TelegramConfig `yaml:"telegram"`
	Sheets   SheetsConfig   `yaml:"google_sheets"`
}

type Web104Config struct {
	APIURL  string `yaml:"api_url"`
	Keyword string `yaml:"keyword"`
	Area    string `yaml:"area"`
	Pages   int    `yaml:"pages"`
	Order   string `yaml:"order"`
	Asc     string `yaml:"asc"`
	Timeout int    `yaml:"timeout_seconds"`
}

type APIConfig struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"-"`
	Query   string `yaml:"query"`
	Timeout int    `yaml:"timeout_seconds"`
}

type IMAPConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"-"`
	Mailbox       string `yaml:"mailbox"`
	SinceDays     int    `yaml:"since_days"`
	FromFilter    string `yaml:"from_filter"`
	SubjectFilter string `yaml:"subject_filter"`
}

type BrowserConfig struct {
	Headless      bool   `yaml:"headless"`
	CookiesFile   string `yaml:"cookies_file"`
	ScreenshotDir string `yaml:"screenshot_dir"`
}

type LINEConfig struct {
	ChannelAccessToken string `yaml:"-"`
	ToUserID           string `yaml:"to_user_id"`
	PushEndpoint       string `yaml:"push_endpoint"`
	InfoEndpoint       string `yaml:"info_endpoint"`
	Timeout            int    `yaml:"timeout_seconds"`
}

type TelegramConfig struct {
	Token  string `yaml:"-"`
	ChatID int64  `yaml:"chat_id"`
}

type SheetsConfig struct {
	CredentialsFile          string `yaml:"credentials_file"`
	SpreadsheetID            string `yaml:"spreadsheet_id"`
	Worksheet                string `yaml:"worksheet"`
	HeaderRow                string `yaml:"header_row"`
	AppendHeader             bool   `yaml:"append_header"`
	CreateWorksheetIfMissing bool   `yaml:"create_worksheet_if_missing"`
}

func (c SheetsConfig) Enabled() bool {
	return c.CredentialsFile != "" && c.SpreadsheetID != ""
}

func (c LINEConfig) Enabled() bool {
	return c.ChannelAccessToken != "" && c.ToUserID != ""
}

func (c TelegramConfig) Enabled() bool {
	return c.Token != "" && c.ChatID != 0
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c Web104Config) TimeoutDuration() time.Duration { return seconds(c.Timeout) }
func (c APIConfig) TimeoutDuration() time.Duration    { return seconds(c.Timeout) }
func (c LINEConfig) TimeoutDuration() time.Duration   { return seconds(c.Timeout) }

// Defaults mirrors the values the tool has always used.
func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		Web104: Web104Config{
			APIURL:  "https://www.104.com.tw/jobs/search/api/jobs",
			Keyword: "產品經理",
			Area:    "6001001000",
			Pages:   1,
			Order:   "15",
			Asc:     "0",
			Timeout: 20,
		},
		API:  APIConfig{Timeout: 20},
		IMAP: IMAPConfig{Port: 993, Mailbox: "INBOX", SinceDays: 1, FromFilter: "104"},
		Browser: BrowserConfig{
			Headless:      true,
			ScreenshotDir: "logs/screenshots",
		},
		LINE: LINEConfig{
			PushEndpoint: "https://api.line.me/v2/bot/message/push",
			InfoEndpoint: "https://api.line.me/v2/bot/info",
			Timeout:      20,
		},
		Sheets: SheetsConfig{
			Worksheet:    "jobs",
			HeaderRow:    "auto",
			AppendHeader: true,
		},
	}
}

// Load reads .env, then the YAML file at path (a missing file is skipped),
// then overlays environment variables.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	//Load yaml config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	//Override with env vars
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	envString(&c.LogLevel, "LOG_LEVEL")
	envString(&c.PushgatewayURL, "PUSHGATEWAY_URL")
	envString(&c.SeenDatabaseURL, "SEEN_DATABASE_URL")

	envString(&c.Web104.APIURL, "WEB104_API_URL")
	envString(&c.Web104.Keyword, "WEB104_KEYWORD")
	envString(&c.Web104.Area, "WEB104_AREA")
	envString(&c.Web104.Order, "WEB104_ORDER")
	envString(&c.Web104.Asc, "WEB104_ASC")

	envString(&c.API.URL, "JOB_API_URL")
	envString(&c.API.Token, "JOB_API_TOKEN")
	envString(&c.API.Query, "JOB_API_QUERY")

	envString(&c.IMAP.Host, "IMAP_HOST")
	envString(&c.IMAP.User, "IMAP_USER")
	envString(&c.IMAP.Password, "IMAP_PASSWORD")
	envString(&c.IMAP.Mailbox, "IMAP_MAILBOX")
	envString(&c.IMAP.FromFilter, "IMAP_FROM_FILTER")
	envString(&c.IMAP.SubjectFilter, "IMAP_SUBJECT_FILTER")

	envString(&c.Browser.CookiesFile, "BROWSER_COOKIES_FILE")
	envString(&c.Browser.ScreenshotDir, "BROWSER_SCREENSHOT_DIR")

	envString(&c.LINE.ChannelAccessToken, "LINE_CHANNEL_ACCESS_TOKEN")
	envString(&c.LINE.ToUserID, "LINE_TO_USER_ID")
	envString(&c.LINE.PushEndpoint, "LINE_PUSH_ENDPOINT")
	envString(&c.LINE.InfoEndpoint, "LINE_INFO_ENDPOINT")

	envString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")

	envString(&c.Sheets.CredentialsFile, "GOOGLE_SHEETS_CREDENTIALS_FILE")
	envString(&c.Sheets.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
	envString(&c.Sheets.Worksheet, "GOOGLE_SHEETS_WORKSHEET")
	envString(&c.Sheets.HeaderRow, "GOOGLE_SHEETS_HEADER_ROW")

	var errs []error
	errs = append(errs,
		envBool(&c.LogDevelopment, "LOG_DEVELOPMENT"),
		envInt(&c.Web104.Pages, "WEB104_PAGES"),
		envInt(&c.Web104.Timeout, "WEB104_TIMEOUT"),
		envInt(&c.API.Timeout, "JOB_API_TIMEOUT"),
		envInt(&c.IMAP.Port, "IMAP_PORT"),
		envInt(&c.IMAP.SinceDays, "IMAP_SINCE_DAYS"),
		envBool(&c.Browser.Headless, "BROWSER_HEADLESS"),
		envInt(&c.LINE.Timeout, "LINE_TIMEOUT"),
		envInt64(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID"),
		envBool(&c.Sheets.AppendHeader, "GOOGLE_SHEETS_APPEND_HEADER"),
		envBool(&c.Sheets.CreateWorksheetIfMissing, "GOOGLE_SHEETS_CREATE_WORKSHEET_IF_MISSING"),
	)
	return errors.Join(errs...)
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envInt64(dst *int64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}
