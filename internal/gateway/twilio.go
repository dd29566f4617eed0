package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// TwilioClient sends WhatsApp messages through the Twilio REST API.
type TwilioClient struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	logger     *slog.Logger
	http       *http.Client
}

func NewTwilioClient(log *slog.Logger, accountSID, authToken, whatsappNumber string, timeout time.Duration) (*TwilioClient, error) {
	if strings.TrimSpace(accountSID) == "" || strings.TrimSpace(authToken) == "" {
		return nil, fmt.Errorf("twilio client: account sid and auth token are required")
	}
	if strings.TrimSpace(whatsappNumber) == "" {
		return nil, fmt.Errorf("twilio client: whatsapp number is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TwilioClient{
		baseURL:    defaultTwilioBaseURL,
		accountSID: accountSID,
		authToken:  authToken,
		from:       FormatOutbound(whatsappNumber),
		logger:     log.With(slog.String("client", "twilio")),
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetBaseURL overrides the API endpoint (tests).
func (c *TwilioClient) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

type sendResponse struct {
	SID          string `json:"sid"`
	ErrorMessage string `json:"error_message"`
}

// Send posts one message and returns the gateway delivery id.
func (c *TwilioClient) Send(toAddress, text string) (string, error) {
	form := url.Values{}
	form.Set("From", c.from)
	form.Set("To", FormatOutbound(toAddress))
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gateway send failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.SID == "" {
		return "", fmt.Errorf("gateway response missing delivery id")
	}
	return parsed.SID, nil
}
