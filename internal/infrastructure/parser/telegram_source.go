package parser

import (
	"encoding/json"
	"log/slog"
	"net/url"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/source"
)

const telegramPreviewURL = "https://t.me/s/"

// TelegramConfig names a public channel whose web preview is scraped.
type TelegramConfig struct {
	ChannelName string `json:"channelName" validate:"required"`
	MaxPage     int    `json:"maxPage,omitempty" validate:"gte=0"`
}

// TelegramHTMLConfig returns the HTML scraping config for a channel preview.
// Paging walks backwards through the rel="prev" link.
func TelegramHTMLConfig(cfg TelegramConfig) HTMLConfig {
	return HTMLConfig{
		URLTemplate:          telegramPreviewURL + url.PathEscape(cfg.ChannelName),
		ItemSelector:         ".tgme_widget_message:not(.service_message) .tgme_widget_message_bubble:not(:has(.message_media_not_supported_wrap)):not(:has(.tgme_widget_message_poll))",
		LinkSelector:         "a.tgme_widget_message_date",
		TextSelector:         ".tgme_widget_message_text",
		TimeSelector:         ".tgme_widget_message_date > time",
		TimeFormat:           isoTimeFormat,
		UsesTimeTag:          true,
		MaxPage:              cfg.MaxPage,
		NextPageLinkSelector: `link[rel="prev"]`,
	}
}

// NewTelegramSource builds an HTML source preconfigured for a channel preview.
func NewTelegramSource(cfg TelegramConfig, fetcher *Fetcher, log *slog.Logger) (source.Source, error) {
	if err := domain.ValidateStruct(cfg); err != nil {
		return nil, err
	}
	htmlCfg := TelegramHTMLConfig(cfg)
	src, err := NewHTMLSource(htmlCfg, fetcher, log)
	if err != nil {
		return nil, err
	}
	return source.Limited(src, htmlCfg.MaxPage), nil
}

// TelegramFactory builds Telegram sources from raw registry payloads.
func TelegramFactory(fetcher *Fetcher, log *slog.Logger) source.Factory {
	return func(raw json.RawMessage) (source.Source, error) {
		var cfg TelegramConfig
		if err := domain.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		return NewTelegramSource(cfg, fetcher, log)
	}
}
