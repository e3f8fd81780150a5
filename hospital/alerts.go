package hospital

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultTwilioBaseURL is the public Twilio REST endpoint.
const DefaultTwilioBaseURL = "https://api.twilio.com"

// Notifier delivers an outbound text message and returns the provider's message id.
type Notifier interface {
	Send(to, body string) (string, error)
}

// TwilioNotifier sends SMS through the Twilio Messages API.
type TwilioNotifier struct {
	httpClient *resty.Client
	accountSID string
	from       string
	logger     *zap.Logger
}

// NewTwilioNotifier creates a client for the given account. baseURL may be empty.
func NewTwilioNotifier(baseURL, accountSID, authToken, from string, logger *zap.Logger) *TwilioNotifier {
	if baseURL == "" {
		baseURL = DefaultTwilioBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetBasicAuth(accountSID, authToken).
		SetHeader("Accept", "application/json")

	return &TwilioNotifier{httpClient: client, accountSID: accountSID, from: from, logger: logger}
}

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (n *TwilioNotifier) Send(to, body string) (string, error) {
	var (
		msg    twilioMessage
		apiErr twilioError
	)
	resp, err := n.httpClient.R().
		SetFormData(map[string]string{"To": to, "From": n.from, "Body": body}).
		SetResult(&msg).
		SetError(&apiErr).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", n.accountSID))
	if err != nil {
		return "", fmt.Errorf("send sms: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("send sms: twilio status %d code %d: %s", resp.StatusCode(), apiErr.Code, apiErr.Message)
	}
	n.logger.Info("sms sent", zap.String("to", to), zap.String("sid", msg.SID), zap.String("status", msg.Status))
	return msg.SID, nil
}

// LogNotifier only logs messages. It stands in when no SMS gateway is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier { return &LogNotifier{logger: logger} }

func (n *LogNotifier) Send(to, body string) (string, error) {
	n.logger.Warn("sms gateway not configured; message not sent", zap.String("to", to), zap.String("body", body))
	return "", nil
}

// CapacityAlert is raised for a critical ward with no free bed.
type CapacityAlert struct {
	Ward      WardType
	Occupied  int
	Total     int
	Message   string
	MessageID string
	Sent      bool
	Err       error
}

// Alerts checks critical-care capacity and notifies the admin phone.
type Alerts struct {
	store      recordStore
	notifier   Notifier
	adminPhone string
	logger     *zap.Logger
}

func NewAlerts(db *Database, notifier Notifier, adminPhone string) *Alerts {
	return &Alerts{store: db.store(), notifier: notifier, adminPhone: adminPhone, logger: db.logger}
}

// CheckCritical looks at every critical ward and sends one message per full ward.
// Delivery failures are recorded on the returned alert, not returned as errors.
func (a *Alerts) CheckCritical() ([]CapacityAlert, error) {
	var alerts []CapacityAlert
	for _, ward := range CriticalWards {
		var total, occupied int
		if err := a.store.queryOne(`SELECT COUNT(*) FROM beds WHERE ward_type=?`, string(ward)).Scan(&total); err != nil {
			return nil, fmt.Errorf("count %s beds: %w", ward, err)
		}
		if err := a.store.queryOne(
			`SELECT COALESCE(SUM(CASE WHEN status=? THEN 1 ELSE 0 END),0) FROM beds WHERE ward_type=?`,
			string(BedOccupied), string(ward)).Scan(&occupied); err != nil {
			return nil, fmt.Errorf("count occupied %s beds: %w", ward, err)
		}
		if total == 0 || occupied < total {
			continue
		}

		al := CapacityAlert{
			Ward:     ward,
			Occupied: occupied,
			Total:    total,
			Message:  fmt.Sprintf("CRITICAL: %s is full (%d/%d)", ward, occupied, total),
		}
		if a.adminPhone == "" {
			a.logger.Warn("admin phone not set; alert not sent", zap.String("alert", al.Message))
		} else {
			al.MessageID, al.Err = a.notifier.Send(a.adminPhone, al.Message)
			al.Sent = al.Err == nil && al.MessageID != ""
			if al.Err != nil {
				a.logger.Error("capacity alert delivery failed", zap.String("ward", string(ward)), zap.Error(al.Err))
			}
		}
		alerts = append(alerts, al)
	}
	return alerts, nil
}
