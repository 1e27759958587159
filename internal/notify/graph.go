package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// GraphMailer sends through Microsoft Graph /users/{from}/sendMail with an app registration.
type GraphMailer struct {
	client   *http.Client
	from     string
	logoPath string
	baseURL  string
}

func NewGraphMailer(tenant, clientID, secret, from, logoPath string) *GraphMailer {
	tokenURL := "https://login.microsoftonline.com/" + url.PathEscape(tenant) + "/oauth2/v2.0/token"
	return newGraphMailer(tokenURL, graphBaseURL, clientID, secret, from, logoPath)
}

// newGraphMailer builds the token source once; it caches the access token until it expires.
func newGraphMailer(tokenURL, baseURL, clientID, secret, from, logoPath string) *GraphMailer {
	creds := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		TokenURL:     tokenURL,
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	bg := context.Background()
	return &GraphMailer{
		client:   oauth2.NewClient(bg, creds.TokenSource(bg)),
		from:     from,
		logoPath: logoPath,
		baseURL:  baseURL,
	}
}

type graphAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
	ContentID    string `json:"contentId"`
	IsInline     bool   `json:"isInline"`
}

type graphMessage struct {
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	ToRecipients []graphAddress    `json:"toRecipients"`
	Attachments  []graphAttachment `json:"attachments,omitempty"`
}

type graphSendMail struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

func (m *GraphMailer) payload(msg Message) graphSendMail {
	var gm graphMessage
	gm.Subject = msg.Subject
	gm.Body.ContentType = "HTML"
	gm.Body.Content = msg.HTML

	var to graphAddress
	to.EmailAddress.Address = msg.To
	gm.ToRecipients = []graphAddress{to}

	if msg.InlineLogo && m.logoPath != "" {
		if logo, err := os.ReadFile(m.logoPath); err == nil {
			gm.Attachments = append(gm.Attachments, graphAttachment{
				ODataType:    "#microsoft.graph.fileAttachment",
				Name:         LogoContentID,
				ContentType:  "image/png",
				ContentBytes: base64.StdEncoding.EncodeToString(logo),
				ContentID:    LogoContentID,
				IsInline:     true,
			})
		}
	}

	return graphSendMail{Message: gm, SaveToSentItems: false}
}

func (m *GraphMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(m.payload(msg))
	if err != nil {
		return fmt.Errorf("encode graph mail: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", m.baseURL, url.PathEscape(m.from))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph sendMail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("graph sendMail returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
