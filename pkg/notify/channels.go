package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mitchellh/mapstructure"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
)

// Sender delivers one rendered message to a channel's destination.
type Sender interface {
	Send(ctx context.Context, message string) error
}

// SlackOptions configures a slack incoming-webhook channel.
type SlackOptions struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Username   string `mapstructure:"username"`
}

// WebhookOptions configures a generic HTTP webhook channel.
type WebhookOptions struct {
	URL     string            `mapstructure:"url"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
}

// GithubOptions configures a github issue/PR comment channel.
type GithubOptions struct {
	Repo        string `mapstructure:"repo"`
	IssueNumber int    `mapstructure:"issue_number"`
	Token       string `mapstructure:"token"`
	APIBaseURL  string `mapstructure:"api_base_url"`
}

// newSender decodes a channel's option bag into its typed options and
// builds the matching sender. Unknown channel types are rejected here
// as well as at config validation, since option bags arrive untyped.
func newSender(ch config.ChannelConfig, client *http.Client, console io.Writer) (Sender, error) {
	switch ch.Type {
	case config.ChannelTypeSlack:
		var opts SlackOptions
		if err := decodeOptions(ch.Options, &opts); err != nil {
			return nil, err
		}

		if opts.WebhookURL == "" {
			return nil, fmt.Errorf("slack channel %q: webhook_url is required", ch.Name)
		}

		return &slackSender{opts: opts, client: client}, nil
	case config.ChannelTypeWebhook:
		var opts WebhookOptions
		if err := decodeOptions(ch.Options, &opts); err != nil {
			return nil, err
		}

		if opts.URL == "" {
			return nil, fmt.Errorf("webhook channel %q: url is required", ch.Name)
		}

		if opts.Method == "" {
			opts.Method = http.MethodPost
		}

		return &webhookSender{opts: opts, client: client}, nil
	case config.ChannelTypeGithub:
		var opts GithubOptions
		if err := decodeOptions(ch.Options, &opts); err != nil {
			return nil, err
		}

		if opts.Repo == "" || opts.IssueNumber == 0 {
			return nil, fmt.Errorf("github channel %q: repo and issue_number are required", ch.Name)
		}

		if opts.APIBaseURL == "" {
			opts.APIBaseURL = "https://api.github.com"
		}

		return &githubSender{opts: opts, client: client}, nil
	case config.ChannelTypeConsole:
		return &consoleSender{out: console}, nil
	default:
		return nil, fmt.Errorf("unknown channel type %q", ch.Type)
	}
}

func decodeOptions(raw map[string]any, target any) error {
	if err := mapstructure.Decode(raw, target); err != nil {
		return fmt.Errorf("decoding channel options: %w", err)
	}

	return nil
}

type slackSender struct {
	opts   SlackOptions
	client *http.Client
}

func (s *slackSender) Send(ctx context.Context, message string) error {
	payload := map[string]any{"text": message}

	if s.opts.Channel != "" {
		payload["channel"] = s.opts.Channel
	}

	if s.opts.Username != "" {
		payload["username"] = s.opts.Username
	}

	return postJSON(ctx, s.client, http.MethodPost, s.opts.WebhookURL, nil, payload)
}

type webhookSender struct {
	opts   WebhookOptions
	client *http.Client
}

func (s *webhookSender) Send(ctx context.Context, message string) error {
	return postJSON(ctx, s.client, s.opts.Method, s.opts.URL, s.opts.Headers, map[string]any{
		"message": message,
	})
}

type githubSender struct {
	opts   GithubOptions
	client *http.Client
}

func (s *githubSender) Send(ctx context.Context, message string) error {
	url := fmt.Sprintf("%s/repos/%s/issues/%d/comments",
		s.opts.APIBaseURL, s.opts.Repo, s.opts.IssueNumber)

	headers := map[string]string{}
	if s.opts.Token != "" {
		headers["Authorization"] = "Bearer " + s.opts.Token
	}

	return postJSON(ctx, s.client, http.MethodPost, url, headers, map[string]any{
		"body": message,
	})
}

type consoleSender struct {
	out io.Writer
}

func (s *consoleSender) Send(_ context.Context, message string) error {
	if _, err := fmt.Fprintln(s.out, message); err != nil {
		return fmt.Errorf("writing console notification: %w", err)
	}

	return nil
}

func postJSON(
	ctx context.Context,
	client *http.Client,
	method, url string,
	headers map[string]string,
	payload any,
) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}

	return nil
}
