// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package telegram is a minimal Bot API client for delivering backups.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ParseModeMarkdownV2 selects Telegram's MarkdownV2 formatting.
const ParseModeMarkdownV2 = "MarkdownV2"

// APIError is a Bot API response with ok=false or a non-2xx status.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: HTTP %d: %s", e.Method, e.StatusCode, e.Description)
}

// Client talks to one bot.
type Client struct {
	HTTP    *http.Client
	APIBase string
	Token   string
}

// NewClient returns a Client with upload-friendly timeouts.
func NewClient(apiBase, token string) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 10 * time.Minute},
		APIBase: strings.TrimRight(apiBase, "/"),
		Token:   token,
	}
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.APIBase, c.Token, method)
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (c *Client) do(req *http.Request, method string) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		// Strip the token-bearing URL from transport errors.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return fmt.Errorf("telegram %s: %w", method, uerr.Err)
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()
	var body apiResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !body.OK {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: body.Description}
	}
	return nil
}

// SendMessage posts text to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID, text, parseMode string) error {
	form := url.Values{"chat_id": {chatID}, "text": {text}}
	if parseMode != "" {
		form.Set("parse_mode", parseMode)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, "sendMessage")
}

// SendDocument uploads the file at path, streaming it as multipart form data.
func (c *Client) SendDocument(ctx context.Context, chatID, path, caption, parseMode string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeDocumentForm(mw, f, filepath.Base(path), map[string]string{
			"chat_id":    chatID,
			"caption":    caption,
			"parse_mode": parseMode,
		})
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendDocument"), pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	err = c.do(req, "sendDocument")
	pr.Close()
	return err
}

func writeDocumentForm(mw *multipart.Writer, r io.Reader, name string, fields map[string]string) error {
	for _, k := range []string{"chat_id", "caption", "parse_mode"} {
		if v := fields[k]; v != "" {
			if err := mw.WriteField(k, v); err != nil {
				return err
			}
		}
	}
	part, err := mw.CreateFormFile("document", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// Chat binds a client to one chat and always uses MarkdownV2.
type Chat struct {
	Client *Client
	ChatID string
}

// SendMessage implements the backup notifier.
func (c Chat) SendMessage(ctx context.Context, text string) error {
	return c.Client.SendMessage(ctx, c.ChatID, text, ParseModeMarkdownV2)
}

// SendDocument implements the backup notifier.
func (c Chat) SendDocument(ctx context.Context, path, caption string) error {
	return c.Client.SendDocument(ctx, c.ChatID, path, caption, ParseModeMarkdownV2)
}
